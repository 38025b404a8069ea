// Package windowloader streams the events of a time window of a recorded trace to a consumer.
//
// A Loader splits the requested window into slices of roughly equal expected event count,
// reads them one after the other from a tracestore.Session and pushes each slice as a Batch
// onto a bounded Queue. After the sweep, one boundary pass recovers the State and Link events
// that started before the window but are still running at its start.
//
// The loader runs on its own goroutine and the consumer on another, the Queue is the only
// thing they share:
//
//	queue, err := loader.Stream(ctx, start, end)
//	if err != nil {
//		return err // configuration error, nothing was started
//	}
//
//	for {
//		batch, err := queue.Next(ctx)
//		if errors.Is(err, windowloader.ErrQueueComplete) {
//			break // everything was delivered
//		}
//		if err != nil {
//			return err // stopped: cancelled or failed, see queue.Err()
//		}
//		draw(batch.Events)
//	}
//
// Every load ends with the queue in exactly one terminal state: Complete after a full sweep
// and boundary pass, Stopped after cancellation or a store error.
package windowloader
