package tracestore

import "fmt"

// Category is the kind of a trace event. The integer codes are the ones persisted in the store.
type Category int

const (
	// CategoryInstant is a punctual event without duration.
	CategoryInstant Category = 0

	// CategoryState is an interval event: a producer was in a state from start to end.
	CategoryState Category = 1

	// CategoryLink is an interval event connecting two producers.
	CategoryLink Category = 2

	// CategoryVariable is a punctual sample of a variable value.
	CategoryVariable Category = 3
)

// String provides a string representation of Category for logging and debugging.
func (c Category) String() string {
	switch c {
	case CategoryInstant:
		return "instant"
	case CategoryState:
		return "state"
	case CategoryLink:
		return "link"
	case CategoryVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// ParseCategory returns the category named by its String form.
func ParseCategory(name string) (Category, error) {
	for _, c := range []Category{CategoryInstant, CategoryState, CategoryLink, CategoryVariable} {
		if c.String() == name {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownEventCategory, name)
}

// ReducedEvent is the minimal, fixed-shape record the loader hands to consumers.
//
// It is a closed set of variants: Instant, Interval, Link and Variable.
// Only Interval and Link carry an end timestamp, so code has to switch on the variant
// (or use EffectiveEnd) instead of assuming an end exists.
type ReducedEvent interface {
	Category() Category
	Producer() int32
	Type() int32
	Start() int64

	// EffectiveEnd is the end timestamp for Interval and Link events and the start timestamp otherwise.
	EffectiveEnd() int64

	sealed()
}

// ReducedEvents is an alias type for a slice of ReducedEvent.
type ReducedEvents = []ReducedEvent

// Instant is a punctual event.
type Instant struct {
	ProducerID int32
	TypeID     int32
	Timestamp  int64
}

func (e Instant) Category() Category  { return CategoryInstant }
func (e Instant) Producer() int32     { return e.ProducerID }
func (e Instant) Type() int32         { return e.TypeID }
func (e Instant) Start() int64        { return e.Timestamp }
func (e Instant) EffectiveEnd() int64 { return e.Timestamp }
func (Instant) sealed()               {}

// Interval is a state of a producer lasting from Timestamp to EndTimestamp.
type Interval struct {
	ProducerID   int32
	TypeID       int32
	Timestamp    int64
	EndTimestamp int64
}

func (e Interval) Category() Category  { return CategoryState }
func (e Interval) Producer() int32     { return e.ProducerID }
func (e Interval) Type() int32         { return e.TypeID }
func (e Interval) Start() int64        { return e.Timestamp }
func (e Interval) EffectiveEnd() int64 { return e.EndTimestamp }
func (Interval) sealed()               {}

// Link connects ProducerID at Timestamp with EndProducerID at EndTimestamp.
type Link struct {
	ProducerID    int32
	TypeID        int32
	Timestamp     int64
	EndTimestamp  int64
	EndProducerID int32
}

func (e Link) Category() Category  { return CategoryLink }
func (e Link) Producer() int32     { return e.ProducerID }
func (e Link) Type() int32         { return e.TypeID }
func (e Link) Start() int64        { return e.Timestamp }
func (e Link) EffectiveEnd() int64 { return e.EndTimestamp }
func (Link) sealed()               {}

// Variable is a sampled value of a producer variable.
type Variable struct {
	ProducerID int32
	TypeID     int32
	Timestamp  int64
	Value      float64
}

func (e Variable) Category() Category  { return CategoryVariable }
func (e Variable) Producer() int32     { return e.ProducerID }
func (e Variable) Type() int32         { return e.TypeID }
func (e Variable) Start() int64        { return e.Timestamp }
func (e Variable) EffectiveEnd() int64 { return e.Timestamp }
func (Variable) sealed()               {}

// IsDurationBearing reports whether the event can extend past the window it starts in.
func IsDurationBearing(ev ReducedEvent) bool {
	switch ev.(type) {
	case Interval, Link:
		return true
	default:
		return false
	}
}

// RawEvent is a DTO with the scalar columns of one stored event row.
//
// Store implementations scan rows into it and build a ReducedEvent with DecodeReducedEvent.
type RawEvent struct {
	Category      int
	ProducerID    int32
	TypeID        int32
	Timestamp     int64
	EndTimestamp  int64
	EndProducerID int32
	Value         float64
}

// DecodeReducedEvent is a factory method for ReducedEvent.
//
// It picks the variant from the category code and copies only the fields that variant has.
// Returns an error if the category is unknown or a duration-bearing event ends before it starts.
func DecodeReducedEvent(raw RawEvent) (ReducedEvent, error) {
	switch Category(raw.Category) {
	case CategoryInstant:
		return Instant{ProducerID: raw.ProducerID, TypeID: raw.TypeID, Timestamp: raw.Timestamp}, nil

	case CategoryState:
		if raw.EndTimestamp < raw.Timestamp {
			return nil, ErrInvalidEventSpan
		}

		return Interval{
			ProducerID:   raw.ProducerID,
			TypeID:       raw.TypeID,
			Timestamp:    raw.Timestamp,
			EndTimestamp: raw.EndTimestamp,
		}, nil

	case CategoryLink:
		if raw.EndTimestamp < raw.Timestamp {
			return nil, ErrInvalidEventSpan
		}

		return Link{
			ProducerID:    raw.ProducerID,
			TypeID:        raw.TypeID,
			Timestamp:     raw.Timestamp,
			EndTimestamp:  raw.EndTimestamp,
			EndProducerID: raw.EndProducerID,
		}, nil

	case CategoryVariable:
		return Variable{ProducerID: raw.ProducerID, TypeID: raw.TypeID, Timestamp: raw.Timestamp, Value: raw.Value}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEventCategory, raw.Category)
	}
}

// EncodeReducedEvent is the inverse of DecodeReducedEvent, used when writing events to a store.
// Instant and Variable events store their start timestamp as end timestamp.
func EncodeReducedEvent(ev ReducedEvent) RawEvent {
	raw := RawEvent{
		Category:     int(ev.Category()),
		ProducerID:   ev.Producer(),
		TypeID:       ev.Type(),
		Timestamp:    ev.Start(),
		EndTimestamp: ev.EffectiveEnd(),
	}

	switch e := ev.(type) {
	case Link:
		raw.EndProducerID = e.EndProducerID
	case Variable:
		raw.Value = e.Value
	}

	return raw
}
