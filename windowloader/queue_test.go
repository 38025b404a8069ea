package windowloader_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	. "github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

func Test_Queue_Delivers_Batches_InPushOrder_WithSequenceNumbers(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	queue := NewQueue(4)

	// act
	for i := range 3 {
		window := tracestore.TimeWindow{Start: int64(i * 10), End: int64(i*10 + 10)}
		require.NoError(t, queue.Push(ctx, Batch{Window: window}))
	}
	assert.True(t, queue.Complete())

	// assert
	for i := range 3 {
		batch, err := queue.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, batch.Seq)
		assert.Equal(t, int64(i*10), batch.Window.Start)
	}

	_, err := queue.Next(ctx)
	assert.ErrorIs(t, err, ErrQueueComplete)
	assert.Equal(t, 3, queue.Pushes())
	assert.Equal(t, QueueComplete, queue.State())
}

func Test_Queue_TerminalState_IsReachedOnlyOnce(t *testing.T) {
	queue := NewQueue(1)

	assert.True(t, queue.Stop())
	assert.False(t, queue.Complete(), "complete after stop must not win")
	assert.False(t, queue.Fail(errors.New("late failure")), "fail after stop must not win")
	assert.False(t, queue.Stop(), "second stop must not win")

	assert.True(t, queue.IsStopped())
	assert.False(t, queue.IsComplete())
	assert.NoError(t, queue.Err())
}

func Test_Queue_ConcurrentTerminalTransitions_HaveExactlyOneWinner(t *testing.T) {
	for range 50 {
		queue := NewQueue(1)

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		transitions := []func() bool{
			queue.Stop,
			queue.Complete,
			func() bool { return queue.Fail(errors.New("boom")) },
		}

		for _, transition := range transitions {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if transition() {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, winners)
		assert.NotEqual(t, QueueOpen, queue.State())
	}
}

func Test_Queue_Fail_RecordsTheCause(t *testing.T) {
	cause := errors.New("store is gone")
	queue := NewQueue(1)

	assert.NoError(t, queue.Err(), "open queue has no error")
	assert.True(t, queue.Fail(cause))

	assert.True(t, queue.IsStopped())
	assert.ErrorIs(t, queue.Err(), cause)
}

func Test_Queue_Push_After_TerminalState_Fails(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue(2)
	queue.Complete()

	err := queue.Push(ctx, Batch{})

	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Equal(t, 0, queue.Pushes())
}

func Test_Queue_Push_Blocks_WhileFull_And_IsReleased_ByStop(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	queue := NewQueue(1)
	require.NoError(t, queue.Push(ctx, Batch{}))

	// act
	pushErr := make(chan error, 1)
	go func() {
		pushErr <- queue.Push(ctx, Batch{})
	}()

	select {
	case err := <-pushErr:
		t.Fatalf("push on a full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	queue.Stop()

	// assert
	assert.ErrorIs(t, <-pushErr, ErrQueueClosed)
	assert.Equal(t, 1, queue.Pushes())
}

func Test_Queue_Push_Blocks_WhileFull_And_Returns_ContextError(t *testing.T) {
	queue := NewQueue(1)
	require.NoError(t, queue.Push(context.Background(), Batch{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := queue.Push(ctx, Batch{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, QueueOpen, queue.State())
}

func Test_Queue_Next_Drains_BufferedBatches_After_Stop(t *testing.T) {
	ctx := context.Background()
	queue := NewQueue(4)
	require.NoError(t, queue.Push(ctx, Batch{}))
	require.NoError(t, queue.Push(ctx, Batch{}))
	queue.Stop()

	first, err := queue.Next(ctx)
	require.NoError(t, err)
	second, err := queue.Next(ctx)
	require.NoError(t, err)
	_, err = queue.Next(ctx)

	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, 1, second.Seq)
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func Test_Queue_Next_Returns_ContextError_On_OpenEmptyQueue(t *testing.T) {
	queue := NewQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Next(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Queue_Done_IsClosed_On_TerminalState(t *testing.T) {
	queue := NewQueue(0)

	select {
	case <-queue.Done():
		t.Fatal("done must not be closed on an open queue")
	default:
	}

	queue.Complete()

	select {
	case <-queue.Done():
	default:
		t.Fatal("done must be closed on a completed queue")
	}

	assert.Equal(t, "complete", queue.State().String())
}
