package windowloader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

const defaultQueueCapacity = 4

// QueueState is the lifecycle state of a Queue.
type QueueState int32

const (
	// QueueOpen accepts pushes.
	QueueOpen QueueState = iota

	// QueueStopped is terminal: the load was cancelled or failed.
	QueueStopped

	// QueueComplete is terminal: every slice and the boundary pass were pushed.
	QueueComplete
)

// String provides a string representation of QueueState for logging and debugging.
func (s QueueState) String() string {
	switch s {
	case QueueOpen:
		return "open"
	case QueueStopped:
		return "stopped"
	case QueueComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Batch is one push of a load: the decoded events of one slice or of the boundary pass.
type Batch struct {
	// Seq numbers the pushes of one queue, starting at 0.
	Seq int

	// Events in the store's row order, not sorted further.
	Events tracestore.ReducedEvents

	// Window is the requested range of the slice. For the boundary pass it is [trace min, first slice start).
	Window tracestore.TimeWindow

	// Observed are the bounds of Events. Duration events may end after Window.End.
	Observed tracestore.ObservedBounds

	// Boundary marks the push of the boundary pass, which is always the last one.
	Boundary bool
}

// Queue is a bounded single-producer single-consumer hand-off between a loader and its consumer.
//
// Push blocks while the buffer is full. Stop, Fail and Complete move the queue from Open
// to a terminal state; only the first of them wins. After the terminal state the consumer
// still receives the batches buffered before it, in order.
type Queue struct {
	ch     chan Batch
	done   chan struct{}
	state  atomic.Int32
	err    error // written once before done is closed
	pushMu sync.Mutex
	pushes atomic.Int64
}

// NewQueue creates a queue buffering up to capacity batches. A capacity below 1 is raised to 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}

	return &Queue{
		ch:   make(chan Batch, capacity),
		done: make(chan struct{}),
	}
}

// Push hands a batch to the consumer, blocking while the buffer is full.
// It returns ErrQueueClosed once the queue is terminal and the context error if ctx ends first.
// The batch gets the next sequence number.
func (q *Queue) Push(ctx context.Context, batch Batch) error {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()

	if q.State() != QueueOpen {
		return ErrQueueClosed
	}

	batch.Seq = int(q.pushes.Load())

	select {
	case q.ch <- batch:
		q.pushes.Add(1)
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop moves an open queue to Stopped. It reports whether this call made the transition.
func (q *Queue) Stop() bool {
	return q.transition(QueueStopped, nil)
}

// Fail moves an open queue to Stopped and records the cause. It reports whether this call made the transition.
func (q *Queue) Fail(err error) bool {
	return q.transition(QueueStopped, err)
}

// Complete moves an open queue to Complete. It reports whether this call made the transition.
func (q *Queue) Complete() bool {
	return q.transition(QueueComplete, nil)
}

func (q *Queue) transition(to QueueState, err error) bool {
	if !q.state.CompareAndSwap(int32(QueueOpen), int32(to)) {
		return false
	}

	q.err = err
	close(q.done)

	return true
}

// State returns the current state.
func (q *Queue) State() QueueState {
	return QueueState(q.state.Load())
}

// IsStopped reports whether the queue was stopped.
func (q *Queue) IsStopped() bool {
	return q.State() == QueueStopped
}

// IsComplete reports whether the queue was completed.
func (q *Queue) IsComplete() bool {
	return q.State() == QueueComplete
}

// Err returns the cause given to Fail, or nil for an open, completed or plainly stopped queue.
func (q *Queue) Err() error {
	select {
	case <-q.done:
		return q.err
	default:
		return nil
	}
}

// Pushes returns the number of batches pushed so far.
func (q *Queue) Pushes() int {
	return int(q.pushes.Load())
}

// Done is closed when the queue reaches a terminal state.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Next returns the next batch in push order, blocking until one is available.
// Once the queue is terminal and drained it returns ErrQueueComplete or ErrQueueStopped.
func (q *Queue) Next(ctx context.Context) (Batch, error) {
	select {
	case batch := <-q.ch:
		return batch, nil
	default:
	}

	select {
	case batch := <-q.ch:
		return batch, nil
	case <-q.done:
		// a push may have landed between the terminal transition and now
		select {
		case batch := <-q.ch:
			return batch, nil
		default:
		}

		if q.IsComplete() {
			return Batch{}, ErrQueueComplete
		}

		return Batch{}, ErrQueueStopped
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	}
}
