package windowloader

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// Catalog resolves producer and event type ids of one trace. It is immutable after creation.
type Catalog struct {
	traceID   uuid.UUID
	producers map[int32]tracestore.Producer
	types     map[int32]tracestore.EventType
}

// NewCatalog indexes producers and types of a trace by id.
func NewCatalog(traceID uuid.UUID, producers []tracestore.Producer, types []tracestore.EventType) *Catalog {
	c := &Catalog{
		traceID:   traceID,
		producers: make(map[int32]tracestore.Producer, len(producers)),
		types:     make(map[int32]tracestore.EventType, len(types)),
	}

	for _, p := range producers {
		c.producers[p.ID] = p
	}

	for _, t := range types {
		c.types[t.ID] = t
	}

	return c
}

// TraceID returns the id of the trace the catalog belongs to.
func (c *Catalog) TraceID() uuid.UUID {
	return c.traceID
}

// Producer looks up a producer by id.
func (c *Catalog) Producer(id int32) (tracestore.Producer, bool) {
	p, ok := c.producers[id]
	return p, ok
}

// Type looks up an event type by id.
func (c *Catalog) Type(id int32) (tracestore.EventType, bool) {
	t, ok := c.types[id]
	return t, ok
}

// ProducerName returns the name of a producer, or "" for an unknown id.
func (c *Catalog) ProducerName(id int32) string {
	return c.producers[id].Name
}

// TypeName returns the name of an event type, or "" for an unknown id.
func (c *Catalog) TypeName(id int32) string {
	return c.types[id].Name
}

// Producers returns all producers ordered by id.
func (c *Catalog) Producers() []tracestore.Producer {
	producers := make([]tracestore.Producer, 0, len(c.producers))
	for _, p := range c.producers {
		producers = append(producers, p)
	}

	sort.Slice(producers, func(i, j int) bool { return producers[i].ID < producers[j].ID })

	return producers
}

// Types returns all event types ordered by id.
func (c *Catalog) Types() []tracestore.EventType {
	types := make([]tracestore.EventType, 0, len(c.types))
	for _, t := range c.types {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })

	return types
}

// catalogCache holds the catalog of the current trace. Concurrent callers wait for a running fetch.
type catalogCache struct {
	mu      sync.Mutex
	catalog *Catalog
}

func (c *catalogCache) get(traceID uuid.UUID, fetch func() (*Catalog, error)) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog != nil && c.catalog.traceID == traceID {
		return c.catalog, nil
	}

	catalog, err := fetch()
	if err != nil {
		return nil, err
	}

	c.catalog = catalog

	return catalog, nil
}

func (c *catalogCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = nil
}
