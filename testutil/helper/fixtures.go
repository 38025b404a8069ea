package helper

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// Type ids used by the fixture catalog, one per category.
const (
	FixtureTypeInstant  int32 = 1
	FixtureTypeState    int32 = 2
	FixtureTypeLink     int32 = 3
	FixtureTypeVariable int32 = 4
)

// GivenUniqueID returns a fresh time-ordered id.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

// GivenTrace returns a trace spanning [minTS, maxTS] with the given event count and a unique locator.
func GivenTrace(t testing.TB, minTS, maxTS, numberOfEvents int64) tracestore.Trace {
	id := GivenUniqueID(t)

	return tracestore.Trace{
		ID:             id,
		Alias:          "fixture trace " + id.String()[:8],
		MinTimestamp:   minTS,
		MaxTimestamp:   maxTS,
		NumberOfEvents: numberOfEvents,
		Locator:        GivenLocator(id),
	}
}

// GivenLocator derives a table prefix from the trace id.
func GivenLocator(id uuid.UUID) string {
	return fmt.Sprintf("trace_%x", id[:])
}

// GivenState returns a State event of the fixture state type.
func GivenState(producer int32, start, end int64) tracestore.Interval {
	return tracestore.Interval{ProducerID: producer, TypeID: FixtureTypeState, Timestamp: start, EndTimestamp: end}
}

// GivenLink returns a Link event of the fixture link type.
func GivenLink(from, to int32, start, end int64) tracestore.Link {
	return tracestore.Link{ProducerID: from, TypeID: FixtureTypeLink, Timestamp: start, EndTimestamp: end, EndProducerID: to}
}

// GivenInstant returns an Instant event of the fixture instant type.
func GivenInstant(producer int32, ts int64) tracestore.Instant {
	return tracestore.Instant{ProducerID: producer, TypeID: FixtureTypeInstant, Timestamp: ts}
}

// GivenVariable returns a Variable event of the fixture variable type.
func GivenVariable(producer int32, ts int64, value float64) tracestore.Variable {
	return tracestore.Variable{ProducerID: producer, TypeID: FixtureTypeVariable, Timestamp: ts, Value: value}
}

// GivenConsecutiveStates returns count States of one producer, the i-th covering [step*i, step*i+length].
func GivenConsecutiveStates(producer int32, count int, step, length int64) tracestore.ReducedEvents {
	events := make(tracestore.ReducedEvents, 0, count)
	for i := range int64(count) {
		events = append(events, GivenState(producer, step*i, step*i+length))
	}

	return events
}

// GivenProducers returns n root producers with ids 0..n-1.
func GivenProducers(n int) []tracestore.Producer {
	producers := make([]tracestore.Producer, 0, n)
	for i := range int32(n) {
		producers = append(producers, tracestore.Producer{
			ID:       i,
			Name:     fmt.Sprintf("thread-%d", i),
			Type:     "thread",
			LocalID:  fmt.Sprintf("T%d", i),
			ParentID: -1,
		})
	}

	return producers
}

// GivenEventTypes returns one event type per category.
func GivenEventTypes() []tracestore.EventType {
	return []tracestore.EventType{
		{ID: FixtureTypeInstant, Name: "marker", Category: tracestore.CategoryInstant},
		{ID: FixtureTypeState, Name: "running", Category: tracestore.CategoryState},
		{ID: FixtureTypeLink, Name: "message", Category: tracestore.CategoryLink},
		{ID: FixtureTypeVariable, Name: "load", Category: tracestore.CategoryVariable},
	}
}
