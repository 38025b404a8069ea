package windowloader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/AntonStoeckl/trace-window-loader-go/testutil/helper"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	. "github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

func Test_Catalog_Resolves_ProducersAndTypes_ById(t *testing.T) {
	// arrange
	traceID := GivenUniqueID(t)
	producers := []tracestore.Producer{
		{ID: 7, Name: "cpu-7", Type: "cpu", LocalID: "C7", ParentID: -1},
		{ID: 2, Name: "cpu-2", Type: "cpu", LocalID: "C2", ParentID: -1},
	}

	// act
	catalog := NewCatalog(traceID, producers, GivenEventTypes())

	// assert
	assert.Equal(t, traceID, catalog.TraceID())
	assert.Equal(t, "cpu-7", catalog.ProducerName(7))
	assert.Equal(t, "running", catalog.TypeName(FixtureTypeState))
	assert.Empty(t, catalog.ProducerName(99), "unknown producer resolves to the empty name")
	assert.Empty(t, catalog.TypeName(99), "unknown type resolves to the empty name")

	producer, found := catalog.Producer(2)
	assert.True(t, found)
	assert.Equal(t, "C2", producer.LocalID)

	_, found = catalog.Type(99)
	assert.False(t, found)

	eventType, found := catalog.Type(FixtureTypeLink)
	assert.True(t, found)
	assert.Equal(t, tracestore.CategoryLink, eventType.Category)
}

func Test_Catalog_Lists_Are_OrderedById(t *testing.T) {
	producers := []tracestore.Producer{{ID: 3}, {ID: 1}, {ID: 2}}
	types := []tracestore.EventType{{ID: 9}, {ID: 4}}

	catalog := NewCatalog(GivenUniqueID(t), producers, types)

	assert.Equal(t, []int32{1, 2, 3}, producerIDs(catalog.Producers()))
	assert.Equal(t, int32(4), catalog.Types()[0].ID)
	assert.Equal(t, int32(9), catalog.Types()[1].ID)
}

func producerIDs(producers []tracestore.Producer) []int32 {
	ids := make([]int32, 0, len(producers))
	for _, p := range producers {
		ids = append(ids, p.ID)
	}

	return ids
}
