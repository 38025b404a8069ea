package storewrapper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore/sqlengine"
)

// Wrapper holds an opened store and closes it when the test ends.
type Wrapper struct {
	store   *config.Store
	adapter config.AdapterType
}

// GetEventStore returns the store under test.
func (w *Wrapper) GetEventStore() *sqlengine.EventStore {
	return w.store.EventStore
}

// Adapter returns the adapter the store was opened with.
func (w *Wrapper) Adapter() config.AdapterType {
	return w.adapter
}

// CreateWrapperWithTestConfig opens the store selected by ADAPTER_TYPE and registers its cleanup.
func CreateWrapperWithTestConfig(t testing.TB, options ...sqlengine.Option) *Wrapper {
	t.Helper()

	settings := config.StoreSettings{Adapter: os.Getenv(config.EnvAdapterType)}

	adapter, err := config.ParseAdapterType(settings.Adapter)
	require.NoError(t, err, "error in test setup")

	if settings.Adapter == "" || adapter == config.AdapterSQLite {
		adapter = config.AdapterSQLite
		settings.Adapter = string(config.AdapterSQLite)
		settings.DSN = config.SQLiteFileDSN(filepath.Join(t.TempDir(), "traces.db"))
	} else {
		settings.DSN = config.DSNFromEnv()
		settings.ReplicaDSN = config.ReplicaDSNFromEnv()
	}

	store, err := config.OpenStore(context.Background(), settings, options...)
	require.NoError(t, err, "error connecting to the trace store in test setup")
	t.Cleanup(store.Close)

	require.NoError(t, store.CreateTracesTable(context.Background()), "error creating the traces table in test setup")

	return &Wrapper{store: store, adapter: adapter}
}

// GivenStoredTrace writes the schema, the catalog, the events and the summary of a trace.
func GivenStoredTrace(
	t testing.TB,
	w *Wrapper,
	trace tracestore.Trace,
	producers []tracestore.Producer,
	types []tracestore.EventType,
	events tracestore.ReducedEvents,
) {
	t.Helper()

	ctx := context.Background()
	es := w.GetEventStore()

	require.NoError(t, es.CreateTraceSchema(ctx, trace.Locator), "error in arranging test data")
	require.NoError(t, es.AppendProducers(ctx, trace.Locator, producers), "error in arranging test data")
	require.NoError(t, es.AppendTypes(ctx, trace.Locator, types), "error in arranging test data")
	require.NoError(t, es.AppendEvents(ctx, trace.Locator, events), "error in arranging test data")
	require.NoError(t, es.SaveTrace(ctx, trace), "error in arranging test data")
}
