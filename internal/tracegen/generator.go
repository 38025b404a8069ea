package tracegen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

const (
	defaultChunkSize = 10000

	// SlotWidth is the distance between the start timestamps of two consecutive events.
	SlotWidth = 10

	// StateLength is the duration of every generated State.
	StateLength = SlotWidth - 1

	producerType = "virtual"
)

// categoryCycle assigns categories to type ids round-robin, so every category has a type once there are four.
var categoryCycle = []tracestore.Category{
	tracestore.CategoryState,
	tracestore.CategoryLink,
	tracestore.CategoryInstant,
	tracestore.CategoryVariable,
}

// Store is the write side of a trace store.
// *sqlengine.EventStore satisfies it.
type Store interface {
	CreateTraceSchema(ctx context.Context, locator string) error
	AppendProducers(ctx context.Context, locator string, producers []tracestore.Producer) error
	AppendTypes(ctx context.Context, locator string, types []tracestore.EventType) error
	AppendEvents(ctx context.Context, locator string, events tracestore.ReducedEvents) error
	SaveTrace(ctx context.Context, trace tracestore.Trace) error
}

// Result summarizes a generated trace.
type Result struct {
	Trace      tracestore.Trace
	Categories map[tracestore.Category]int64
	Duration   time.Duration
}

// Generator writes synthetic traces to a Store.
type Generator struct {
	store     Store
	chunkSize int
	logger    tracestore.Logger
}

// NewGenerator creates a Generator writing to store.
func NewGenerator(store Store, options ...Option) (*Generator, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	g := &Generator{store: store, chunkSize: defaultChunkSize}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Generate creates the schema and catalog of a new trace, appends its events chunk by chunk
// and saves the trace summary last, so a trace is only listed once it is complete.
func (g *Generator) Generate(ctx context.Context, settings config.GeneratorSettings) (Result, error) {
	if err := ValidateSettings(settings); err != nil {
		return Result{}, err
	}

	start := time.Now()
	locator := settings.Locator

	producers := Producers(settings.Producers, settings.Leaves)
	types := EventTypes(settings.Types)

	g.logInfo("generating trace", "locator", locator, "events", settings.Events,
		"producers", len(producers), "leaves", settings.Leaves, "types", len(types), "seed", settings.Seed)

	if err := g.store.CreateTraceSchema(ctx, locator); err != nil {
		return Result{}, errors.Join(ErrWritingTraceFailed, err)
	}

	if err := g.store.AppendProducers(ctx, locator, producers); err != nil {
		return Result{}, errors.Join(ErrWritingTraceFailed, err)
	}

	if err := g.store.AppendTypes(ctx, locator, types); err != nil {
		return Result{}, errors.Join(ErrWritingTraceFailed, err)
	}

	source := newEventSource(settings, types, eventProducers(settings, producers))
	chunk := make(tracestore.ReducedEvents, 0, g.chunkSize)

	for source.hasNext() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		chunk = chunk[:0]
		for len(chunk) < g.chunkSize && source.hasNext() {
			chunk = append(chunk, source.next())
		}

		if err := g.store.AppendEvents(ctx, locator, chunk); err != nil {
			return Result{}, errors.Join(ErrWritingTraceFailed, err)
		}

		g.logDebug("appended generated events", "locator", locator, "generated", source.generated)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Result{}, err
	}

	trace := tracestore.Trace{
		ID:             id,
		Alias:          settings.Alias,
		MinTimestamp:   0,
		MaxTimestamp:   source.maxTimestamp(),
		NumberOfEvents: settings.Events,
		Locator:        locator,
	}

	if err := g.store.SaveTrace(ctx, trace); err != nil {
		return Result{}, errors.Join(ErrWritingTraceFailed, err)
	}

	result := Result{Trace: trace, Categories: source.categories, Duration: time.Since(start)}

	g.logInfo("trace generated", "trace_id", trace.ID.String(), "locator", locator,
		"max_timestamp", trace.MaxTimestamp, "duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// ValidateSettings checks that the settings describe a trace the generator can write.
func ValidateSettings(settings config.GeneratorSettings) error {
	switch {
	case settings.Locator == "":
		return fmt.Errorf("%w: locator must not be empty", ErrInvalidGeneratorSettings)
	case settings.Producers <= 0:
		return fmt.Errorf("%w: producers must be positive", ErrInvalidGeneratorSettings)
	case settings.Leaves < 0:
		return fmt.Errorf("%w: leaves must not be negative", ErrInvalidGeneratorSettings)
	case settings.OnlyLeavesAsProducers && settings.Leaves == 0:
		return fmt.Errorf("%w: only_leaves_as_producers needs leaves", ErrInvalidGeneratorSettings)
	case settings.Types < len(categoryCycle):
		return fmt.Errorf("%w: at least %d types are needed", ErrInvalidGeneratorSettings, len(categoryCycle))
	case settings.Events <= 0:
		return fmt.Errorf("%w: events must be positive", ErrInvalidGeneratorSettings)
	case settings.MaxLinkSpan < 0:
		return fmt.Errorf("%w: max_link_span must not be negative", ErrInvalidGeneratorSettings)
	}

	ratios := []float64{settings.LinkRatio, settings.InstantRatio, settings.VariableRatio}

	sum := 0.0
	for _, ratio := range ratios {
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("%w: ratios must be between 0 and 1", ErrInvalidGeneratorSettings)
		}

		sum += ratio
	}

	if sum > 1 {
		return fmt.Errorf("%w: ratios must not add up to more than 1", ErrInvalidGeneratorSettings)
	}

	return nil
}

// Producers returns the producer tree of a trace. Producer 0 is the root and the other nodes-1 inner
// producers are its children. The leaves follow with the next ids, attached round-robin to the inner
// producers below the root, or to the root itself when there are none.
func Producers(nodes, leaves int) []tracestore.Producer {
	producers := make([]tracestore.Producer, 0, nodes+leaves)

	for i := range nodes {
		parent := int32(0)
		if i == 0 {
			parent = -1
		}

		producers = append(producers, newProducer(i, parent))
	}

	for i := range leaves {
		parent := int32(0)
		if nodes > 1 {
			parent = int32(1 + i%(nodes-1))
		}

		producers = append(producers, newProducer(nodes+i, parent))
	}

	return producers
}

func newProducer(id int, parent int32) tracestore.Producer {
	return tracestore.Producer{
		ID:       int32(id),
		Name:     "producer-" + strconv.Itoa(id),
		Type:     producerType,
		LocalID:  strconv.Itoa(id),
		ParentID: parent,
	}
}

// eventProducers returns the ids events are drawn for: the leaves only, or the whole tree.
func eventProducers(settings config.GeneratorSettings, producers []tracestore.Producer) []int32 {
	candidates := producers
	if settings.OnlyLeavesAsProducers {
		candidates = producers[settings.Producers:]
	}

	ids := make([]int32, 0, len(candidates))
	for _, p := range candidates {
		ids = append(ids, p.ID)
	}

	return ids
}

// EventTypes returns n event types with categories assigned round-robin.
func EventTypes(n int) []tracestore.EventType {
	types := make([]tracestore.EventType, 0, n)

	for i := range n {
		category := categoryCycle[i%len(categoryCycle)]

		types = append(types, tracestore.EventType{
			ID:       int32(i),
			Name:     fmt.Sprintf("%s-%d", category, i),
			Category: category,
		})
	}

	return types
}

// eventSource draws the events of a trace one slot after the other.
type eventSource struct {
	settings   config.GeneratorSettings
	rng        *rand.Rand
	types      map[tracestore.Category][]int32
	producers  []int32
	generated  int64
	maxEnd     int64
	categories map[tracestore.Category]int64
}

func newEventSource(settings config.GeneratorSettings, types []tracestore.EventType, producers []int32) *eventSource {
	byCategory := make(map[tracestore.Category][]int32, len(categoryCycle))
	for _, t := range types {
		byCategory[t.Category] = append(byCategory[t.Category], t.ID)
	}

	seed := uint64(settings.Seed)

	return &eventSource{
		settings:   settings,
		rng:        rand.New(rand.NewPCG(seed, seed)),
		types:      byCategory,
		producers:  producers,
		categories: make(map[tracestore.Category]int64, len(categoryCycle)),
	}
}

func (s *eventSource) hasNext() bool {
	return s.generated < s.settings.Events
}

func (s *eventSource) next() tracestore.ReducedEvent {
	start := s.generated * SlotWidth
	category := s.drawCategory()
	producer := s.drawProducer()
	typeID := s.drawType(category)

	var ev tracestore.ReducedEvent

	switch category {
	case tracestore.CategoryLink:
		ev = tracestore.Link{
			ProducerID:    producer,
			TypeID:        typeID,
			Timestamp:     start,
			EndTimestamp:  start + s.rng.Int64N(s.settings.MaxLinkSpan+1),
			EndProducerID: s.drawProducer(),
		}
	case tracestore.CategoryInstant:
		ev = tracestore.Instant{ProducerID: producer, TypeID: typeID, Timestamp: start}
	case tracestore.CategoryVariable:
		ev = tracestore.Variable{ProducerID: producer, TypeID: typeID, Timestamp: start, Value: s.rng.Float64() * 100}
	default:
		ev = tracestore.Interval{ProducerID: producer, TypeID: typeID, Timestamp: start, EndTimestamp: start + StateLength}
	}

	s.generated++
	s.categories[category]++
	s.maxEnd = max(s.maxEnd, ev.EffectiveEnd())

	return ev
}

func (s *eventSource) drawCategory() tracestore.Category {
	r := s.rng.Float64()

	switch {
	case r < s.settings.LinkRatio:
		return tracestore.CategoryLink
	case r < s.settings.LinkRatio+s.settings.InstantRatio:
		return tracestore.CategoryInstant
	case r < s.settings.LinkRatio+s.settings.InstantRatio+s.settings.VariableRatio:
		return tracestore.CategoryVariable
	default:
		return tracestore.CategoryState
	}
}

func (s *eventSource) drawProducer() int32 {
	return s.producers[s.rng.IntN(len(s.producers))]
}

func (s *eventSource) drawType(category tracestore.Category) int32 {
	ids := s.types[category]
	return ids[s.rng.IntN(len(ids))]
}

// maxTimestamp covers the last slot even when its event is punctual.
func (s *eventSource) maxTimestamp() int64 {
	return max(s.maxEnd, (s.generated-1)*SlotWidth+StateLength)
}

func (g *Generator) logInfo(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}

func (g *Generator) logDebug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
