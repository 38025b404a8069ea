package main

import (
	"bufio"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

type traceRecord struct {
	ID             string           `json:"id"`
	Alias          string           `json:"alias"`
	MinTimestamp   int64            `json:"min_timestamp"`
	MaxTimestamp   int64            `json:"max_timestamp"`
	NumberOfEvents int64            `json:"number_of_events"`
	Locator        string           `json:"locator"`
	Categories     map[string]int64 `json:"categories,omitempty"`
}

func toTraceRecord(trace tracestore.Trace) traceRecord {
	return traceRecord{
		ID:             trace.ID.String(),
		Alias:          trace.Alias,
		MinTimestamp:   trace.MinTimestamp,
		MaxTimestamp:   trace.MaxTimestamp,
		NumberOfEvents: trace.NumberOfEvents,
		Locator:        trace.Locator,
	}
}

type eventRecord struct {
	Seq          int      `json:"seq"`
	Boundary     bool     `json:"boundary,omitempty"`
	Category     string   `json:"category"`
	Producer     int32    `json:"producer"`
	ProducerName string   `json:"producer_name,omitempty"`
	Type         int32    `json:"type"`
	TypeName     string   `json:"type_name,omitempty"`
	Start        int64    `json:"start"`
	End          int64    `json:"end"`
	EndProducer  *int32   `json:"end_producer,omitempty"`
	Value        *float64 `json:"value,omitempty"`
}

func toEventRecord(batch windowloader.Batch, ev tracestore.ReducedEvent, catalog *windowloader.Catalog) eventRecord {
	record := eventRecord{
		Seq:          batch.Seq,
		Boundary:     batch.Boundary,
		Category:     ev.Category().String(),
		Producer:     ev.Producer(),
		ProducerName: catalog.ProducerName(ev.Producer()),
		Type:         ev.Type(),
		TypeName:     catalog.TypeName(ev.Type()),
		Start:        ev.Start(),
		End:          ev.EffectiveEnd(),
	}

	switch e := ev.(type) {
	case tracestore.Link:
		record.EndProducer = &e.EndProducerID
	case tracestore.Variable:
		record.Value = &e.Value
	}

	return record
}

type groupRecord struct {
	Producer     int32  `json:"producer"`
	ProducerName string `json:"producer_name,omitempty"`
	Type         int32  `json:"type"`
	TypeName     string `json:"type_name,omitempty"`
	Category     string `json:"category"`
	Events       int    `json:"events"`
	First        int64  `json:"first_start"`
	Last         int64  `json:"last_start"`
}

// jsonLines writes one JSON document per line through a buffer. Call flush before returning.
type jsonLines struct {
	buffer  *bufio.Writer
	encoder *jsoniter.Encoder
}

func newJSONLines(w io.Writer) *jsonLines {
	buffer := bufio.NewWriter(w)
	return &jsonLines{buffer: buffer, encoder: jsoniter.ConfigFastest.NewEncoder(buffer)}
}

func (j *jsonLines) write(v any) error {
	return j.encoder.Encode(v)
}

func (j *jsonLines) flush() error {
	return j.buffer.Flush()
}
