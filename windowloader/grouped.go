package windowloader

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// GroupedEvents holds events keyed by producer id, then by type id.
// Every list keeps the store's (start, end) order.
type GroupedEvents map[int32]map[int32]tracestore.ReducedEvents

func (g GroupedEvents) add(ev tracestore.ReducedEvent) {
	byType, ok := g[ev.Producer()]
	if !ok {
		byType = make(map[int32]tracestore.ReducedEvents)
		g[ev.Producer()] = byType
	}

	byType[ev.Type()] = append(byType[ev.Type()], ev)
}

// Events returns the events of one producer and type, nil if there are none.
func (g GroupedEvents) Events(producerID, typeID int32) tracestore.ReducedEvents {
	return g[producerID][typeID]
}

// Count returns the number of grouped events.
func (g GroupedEvents) Count() int {
	count := 0
	for _, byType := range g {
		for _, events := range byType {
			count += len(events)
		}
	}

	return count
}

// GroupByProducerAndType reads all events of the given categories over the whole trace and groups them.
// Without categories every event is read. A cancelled context aborts the read with the context error.
func GroupByProducerAndType(ctx context.Context, session tracestore.Session, categories ...tracestore.Category) (GroupedEvents, error) {
	return groupEvents(ctx, session, tracestore.CategoryQuery{Categories: categories}, defaultCancelCheckInterval)
}

func groupEvents(ctx context.Context, session tracestore.Session, query tracestore.CategoryQuery, checkEvery int) (GroupedEvents, error) {
	grouped := make(GroupedEvents)
	rows := 0

	err := session.ReadCategories(ctx, query, func(ev tracestore.ReducedEvent) error {
		rows++
		if rows%checkEvery == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		grouped.add(ev)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return grouped, nil
}

// LoadGrouped reads the events of the given categories of the current trace, grouped by producer and type.
//
// It shares the loader's store session, so it fails with ErrLoadInProgress while a window load runs.
// It does not change the loader State, which tracks window loads only.
func (l *Loader) LoadGrouped(ctx context.Context, categories ...tracestore.Category) (GroupedEvents, error) {
	trace, err := l.claimTrace()
	if err != nil {
		return nil, err
	}
	defer l.running.Store(false)

	start := time.Now()
	ctx = tracestore.WithReplicaReads(ctx)

	session, err := l.ensureSession(ctx, trace)
	if err != nil {
		l.logError(ctx, logMsgGroupedLoadFailed, err, logAttrTraceID, trace.ID.String())
		return nil, err
	}

	grouped, err := groupEvents(ctx, session, tracestore.CategoryQuery{Categories: categories}, l.cancelCheckInterval)
	if err != nil {
		if ctx.Err() == nil {
			err = errors.Join(ErrReadingCategoriesFailed, err)
		}

		l.logError(ctx, logMsgGroupedLoadFailed, err, logAttrTraceID, trace.ID.String())

		return nil, err
	}

	l.logInfo(ctx, logMsgGroupedLoaded,
		logAttrTraceID, trace.ID.String(),
		logAttrProducers, len(grouped),
		logAttrTotalEvents, grouped.Count(),
		logAttrDurationMS, toMilliseconds(time.Since(start)),
	)

	return grouped, nil
}

// claimTrace claims the loader like a window load does and returns the current trace.
func (l *Loader) claimTrace() (tracestore.Trace, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.CompareAndSwap(false, true) {
		return tracestore.Trace{}, ErrLoadInProgress
	}

	if l.trace == nil {
		l.running.Store(false)
		return tracestore.Trace{}, ErrNoTrace
	}

	return *l.trace, nil
}
