package sqlengine_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/trace-window-loader-go/testutil/helper"
	"github.com/AntonStoeckl/trace-window-loader-go/testutil/helper/storewrapper"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	. "github.com/AntonStoeckl/trace-window-loader-go/tracestore/sqlengine"
)

func givenStoredUniformTrace(t *testing.T, wrapper *storewrapper.Wrapper, extra ...tracestore.ReducedEvent) tracestore.Trace {
	events := GivenConsecutiveStates(0, 100, 10, 9)
	events = append(events, extra...)
	trace := GivenTrace(t, 0, 1000, int64(len(events)))
	storewrapper.GivenStoredTrace(t, wrapper, trace, GivenProducers(3), GivenEventTypes(), events)

	return trace
}

func readSlice(t *testing.T, ctx context.Context, session tracestore.Session, query tracestore.SliceQuery) tracestore.ReducedEvents {
	events := make(tracestore.ReducedEvents, 0)
	err := session.ReadSlice(ctx, query, func(ev tracestore.ReducedEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	return events
}

func Test_Constructors_Reject_NilConnections(t *testing.T) {
	_, err := NewEventStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewEventStoreFromPGXPoolAndReplica(&pgxpool.Pool{}, nil)
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewEventStoreFromSQLDB((*sql.DB)(nil))
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)

	_, err = NewEventStoreFromSQLX((*sqlx.DB)(nil))
	assert.ErrorIs(t, err, ErrNilDatabaseConnection)
}

func Test_Options_Are_Validated(t *testing.T) {
	db := &sql.DB{}

	_, err := NewEventStoreFromSQLDB(db, WithDialect("oracle"))
	assert.ErrorIs(t, err, ErrUnsupportedDialect)

	_, err = NewEventStoreFromSQLDB(db, WithTracesTableName(""))
	assert.ErrorIs(t, err, ErrEmptyTableName)

	_, err = NewEventStoreFromSQLDB(db, WithInsertBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	es, err := NewEventStoreFromSQLDB(db)
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, es.Dialect())
}

func Test_ReadSlice_Returns_EventsStartingInTheRange_InStoreOrder(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := storewrapper.CreateWrapperWithTestConfig(t, WithInsertBatchSize(7))
	es := wrapper.GetEventStore()

	// arrange
	link := GivenLink(1, 2, 100, 180)
	variable := GivenVariable(2, 150, 0.25)
	instant := GivenInstant(0, 200)
	trace := givenStoredUniformTrace(t, wrapper, link, variable, instant)

	session, err := es.OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// act
	halfOpen := readSlice(t, ctx, session, tracestore.SliceQuery{From: 100, To: 200})
	closed := readSlice(t, ctx, session, tracestore.SliceQuery{From: 100, To: 200, ToInclusive: true})

	// assert
	require.Len(t, halfOpen, 12)
	assert.Equal(t, tracestore.ReducedEvent(GivenState(0, 100, 109)), halfOpen[0])
	assert.Equal(t, tracestore.ReducedEvent(link), halfOpen[1], "ties on start are ordered by end")
	assert.Contains(t, halfOpen, tracestore.ReducedEvent(variable))
	assert.NotContains(t, halfOpen, tracestore.ReducedEvent(instant))

	assert.Len(t, closed, 14, "the closed range also holds the state and the instant at 200")
	assert.Contains(t, closed, tracestore.ReducedEvent(instant))

	for i := 1; i < len(closed); i++ {
		assert.LessOrEqual(t, closed[i-1].Start(), closed[i].Start())
	}
}

func Test_ReadSlice_Stops_On_ErrStopScan_And_Propagates_OtherErrors(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := storewrapper.CreateWrapperWithTestConfig(t)
	trace := givenStoredUniformTrace(t, wrapper)

	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// act
	visited := 0
	stopErr := session.ReadSlice(ctx, tracestore.SliceQuery{From: 0, To: 1000, ToInclusive: true}, func(tracestore.ReducedEvent) error {
		visited++
		if visited == 3 {
			return tracestore.ErrStopScan
		}
		return nil
	})

	visitErr := errors.New("consumer gave up")
	failErr := session.ReadSlice(ctx, tracestore.SliceQuery{From: 0, To: 1000}, func(tracestore.ReducedEvent) error {
		return visitErr
	})

	// assert
	assert.NoError(t, stopErr)
	assert.Equal(t, 3, visited)
	assert.ErrorIs(t, failErr, visitErr)
}

func Test_ReadBoundary_Returns_EventsRunningAtTheWindowStart(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := storewrapper.CreateWrapperWithTestConfig(t)

	// arrange
	running := GivenState(1, 150, 250)
	message := GivenLink(1, 2, 120, 200)
	endedBefore := GivenState(2, 50, 199)
	startsAtWindow := GivenState(2, 200, 260)
	instant := GivenInstant(2, 190)
	trace := givenStoredUniformTrace(t, wrapper, running, message, endedBefore, startsAtWindow, instant)

	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// act
	events := make(tracestore.ReducedEvents, 0)
	err = session.ReadBoundary(ctx, tracestore.BoundaryQuery{TraceMin: 0, WindowStart: 200, DurationOnly: true}, func(ev tracestore.ReducedEvent) error {
		events = append(events, ev)
		return nil
	})

	// assert
	require.NoError(t, err)
	assert.Contains(t, events, tracestore.ReducedEvent(running))
	assert.Contains(t, events, tracestore.ReducedEvent(message))
	assert.NotContains(t, events, tracestore.ReducedEvent(startsAtWindow))
	assert.NotContains(t, events, tracestore.ReducedEvent(instant), "duration only pushes the category filter down")

	for _, ev := range events {
		assert.Less(t, ev.Start(), int64(200))
		assert.True(t, tracestore.IsDurationBearing(ev))
	}
}

func Test_Session_Reads_TheCatalog(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := storewrapper.CreateWrapperWithTestConfig(t)
	trace := givenStoredUniformTrace(t, wrapper)

	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// act
	producers, producersErr := session.Producers(ctx)
	types, typesErr := session.Types(ctx)

	// assert
	require.NoError(t, producersErr)
	require.NoError(t, typesErr)
	assert.Equal(t, GivenProducers(3), producers)
	assert.Equal(t, GivenEventTypes(), types)
}

func Test_Session_ReadCategories_Returns_TheSelectedCategories_InStoreOrder(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := storewrapper.CreateWrapperWithTestConfig(t)

	// arrange
	early := GivenVariable(1, 5, 0.5)
	late := GivenVariable(2, 995, 9.5)
	trace := givenStoredUniformTrace(t, wrapper, late, GivenInstant(1, 400), early, GivenLink(0, 1, 100, 300))

	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	read := func(query tracestore.CategoryQuery) tracestore.ReducedEvents {
		events := make(tracestore.ReducedEvents, 0)
		require.NoError(t, session.ReadCategories(ctx, query, func(ev tracestore.ReducedEvent) error {
			events = append(events, ev)
			return nil
		}))

		return events
	}

	// act
	variables := read(tracestore.CategoryQuery{Categories: []tracestore.Category{tracestore.CategoryVariable}})
	variablesAndStates := read(tracestore.CategoryQuery{Categories: []tracestore.Category{tracestore.CategoryVariable, tracestore.CategoryState}})
	all := read(tracestore.CategoryQuery{})

	// assert
	assert.Equal(t, tracestore.ReducedEvents{early, late}, variables)
	assert.Len(t, variablesAndStates, 102)
	assert.Len(t, all, 104)

	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Start(), all[i].Start(), "events are ordered by start")
	}
}

func Test_Session_When_Closed(t *testing.T) {
	ctx := context.Background()
	wrapper := storewrapper.CreateWrapperWithTestConfig(t)
	trace := givenStoredUniformTrace(t, wrapper)

	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	require.NoError(t, session.Close())

	noop := func(tracestore.ReducedEvent) error { return nil }

	assert.ErrorIs(t, session.ReadSlice(ctx, tracestore.SliceQuery{From: 0, To: 10}, noop), tracestore.ErrSessionClosed)
	assert.ErrorIs(t, session.ReadBoundary(ctx, tracestore.BoundaryQuery{WindowStart: 10}, noop), tracestore.ErrSessionClosed)
	assert.ErrorIs(t, session.ReadCategories(ctx, tracestore.CategoryQuery{}, noop), tracestore.ErrSessionClosed)

	_, err = session.Producers(ctx)
	assert.ErrorIs(t, err, tracestore.ErrSessionClosed)

	_, err = session.Types(ctx)
	assert.ErrorIs(t, err, tracestore.ErrSessionClosed)
}

func Test_AppendProducers_When_ALaterBatchFails_Commits_Nothing(t *testing.T) {
	// setup
	ctx := context.Background()
	wrapper := storewrapper.CreateWrapperWithTestConfig(t, WithInsertBatchSize(2))
	es := wrapper.GetEventStore()

	// arrange
	trace := GivenTrace(t, 0, 10, 0)
	require.NoError(t, es.CreateTraceSchema(ctx, trace.Locator))

	producers := GivenProducers(3)
	producers = append(producers, producers[0]) // duplicate id in the second statement

	// act
	err := es.AppendProducers(ctx, trace.Locator, producers)

	// assert
	assert.ErrorIs(t, err, ErrWritingFailed)

	session, err := es.OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	stored, err := session.Producers(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func Test_OpenSession_Rejects_InvalidLocators(t *testing.T) {
	ctx := context.Background()
	es := storewrapper.CreateWrapperWithTestConfig(t).GetEventStore()

	_, err := es.OpenSession(ctx, tracestore.Trace{Locator: "events; DROP TABLE traces"})
	assert.ErrorIs(t, err, ErrInvalidLocator)

	_, err = es.OpenSession(ctx, tracestore.Trace{})
	assert.ErrorIs(t, err, tracestore.ErrEmptyLocator)
}

func Test_TraceRepository_Saves_Loads_And_Lists_Traces(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper := storewrapper.CreateWrapperWithTestConfig(t)
	es := wrapper.GetEventStore()

	// arrange
	first := GivenTrace(t, 0, 1000, 100)
	first.Alias = "a first trace"
	second := GivenTrace(t, 50, 5000, 1234)
	second.Alias = "b second trace"

	require.NoError(t, es.SaveTrace(ctx, second))
	require.NoError(t, es.SaveTrace(ctx, first))

	// act
	loaded, loadErr := es.LoadTrace(ctx, second.ID)
	second.NumberOfEvents = 4321
	resaveErr := es.SaveTrace(ctx, second)
	reloaded, reloadErr := es.LoadTrace(ctx, second.ID)
	_, missingErr := es.LoadTrace(ctx, GivenUniqueID(t))

	// assert
	require.NoError(t, loadErr)
	require.NoError(t, resaveErr)
	require.NoError(t, reloadErr)
	assert.Equal(t, int64(1234), loaded.NumberOfEvents)
	assert.Equal(t, second, reloaded, "saving again replaces the summary")
	assert.ErrorIs(t, missingErr, tracestore.ErrTraceNotFound)

	traces, err := es.ListTraces(ctx)
	require.NoError(t, err)

	var found []string
	for _, tr := range traces {
		if tr.ID == first.ID || tr.ID == second.ID {
			found = append(found, tr.Alias)
		}
	}
	assert.Equal(t, []string{"a first trace", "b second trace"}, found, "traces are listed by alias")
}

func Test_Observability_Of_Reads(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logHandler := NewLogHandlerSpy(false)
	metricsSpy := NewMetricsCollectorSpy(true)
	tracingSpy := NewTracingCollectorSpy(true)

	wrapper := storewrapper.CreateWrapperWithTestConfig(t,
		WithLogger(slog.New(logHandler)),
		WithMetrics(metricsSpy),
		WithTracing(tracingSpy))
	trace := givenStoredUniformTrace(t, wrapper)

	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// act
	_ = readSlice(t, ctx, session, tracestore.SliceQuery{From: 0, To: 100})

	// assert
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: query").WithDurationMS().WithAttr("query").Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage("tracestore operation: events appended").WithIntAttr("event_count", 100).Assert())

	assert.True(t, metricsSpy.HasDurationRecordForMetric("tracestore_query_duration_seconds").
		WithOperation("read_slice").
		WithStatus("success").
		Assert())
	assert.True(t, metricsSpy.HasValueRecordForMetric("tracestore_query_events_total").WithValue(10).Assert())
	assert.True(t, metricsSpy.HasDurationRecordForMetric("tracestore_write_duration_seconds").WithOperation("append_events").Assert())

	assert.True(t, tracingSpy.HasSpanRecordForName("tracestore.read_slice").
		WithStartAttribute("range_from", "0").
		WithStartAttribute("range_to", "100").
		WithStatus("success").
		WithEndAttribute("event_count", "10").
		Assert())
}

func Test_Observability_Of_FailedReads(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metricsSpy := NewMetricsCollectorSpy(true)
	tracingSpy := NewTracingCollectorSpy(true)

	wrapper := storewrapper.CreateWrapperWithTestConfig(t, WithMetrics(metricsSpy), WithTracing(tracingSpy))

	// arrange: a trace whose tables were never created
	trace := GivenTrace(t, 0, 1000, 10)
	session, err := wrapper.GetEventStore().OpenSession(ctx, trace)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// act
	err = session.ReadSlice(ctx, tracestore.SliceQuery{From: 0, To: 100}, func(tracestore.ReducedEvent) error { return nil })

	// assert
	assert.ErrorIs(t, err, ErrQueryingEventsFailed)
	assert.True(t, metricsSpy.HasCounterRecordForMetric("tracestore_database_errors_total").
		WithOperation("read_slice").
		WithErrorType("database_query").
		Assert())
	assert.True(t, tracingSpy.HasSpanRecordForName("tracestore.read_slice").
		WithStatus("error").
		WithEndAttribute("error_type", "database_query").
		Assert())
}
