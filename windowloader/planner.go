package windowloader

import (
	"math"
	"math/bits"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// PlanInterval returns the slice duration for which a slice is expected to hold about
// eventsPerWindow events, assuming events are spread uniformly over the trace span:
//
//	span * eventsPerWindow / NumberOfEvents
//
// The result is at least 1 and at most max(span, 1). A trace without an event count
// is read as a single slice. PlanInterval is pure: the same input always gives the same result.
func PlanInterval(trace tracestore.Trace, eventsPerWindow int64) int64 {
	span := trace.Span()
	if span <= 0 {
		return 1
	}

	if trace.NumberOfEvents <= 0 {
		return span
	}

	if eventsPerWindow <= 0 {
		eventsPerWindow = 1
	}

	hi, lo := bits.Mul64(uint64(span), uint64(eventsPerWindow))
	if hi >= uint64(trace.NumberOfEvents) {
		// quotient does not fit into 64 bits, which means it exceeds the span anyway
		return span
	}

	quotient, _ := bits.Div64(hi, lo, uint64(trace.NumberOfEvents))
	if quotient > math.MaxInt64 {
		return span
	}

	return clampInterval(int64(quotient), span)
}

// TotalWork returns the number of progress units of a trace: one unit per interval of trace time.
func TotalWork(trace tracestore.Trace, interval int64) int {
	if interval <= 0 {
		return 0
	}

	work := trace.Span() / interval
	if work > math.MaxInt32 {
		return math.MaxInt32
	}

	return int(work)
}

func clampInterval(interval, span int64) int64 {
	switch {
	case interval < 1:
		return 1
	case interval > span:
		return span
	default:
		return interval
	}
}
