package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
)

func Test_LoadSettings_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracetool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  adapter: sqlite
  dsn: "sqlite:file:traces.db"
loader:
  events_per_window: 5000
bench:
  intervals: [10, 20]
  experiments:
    - trace_id: 0190a4c2-1d9e-7b1c-9a4e-2f6a8c1d3e5f
      runs: 3
`), 0o600))

	settings, err := config.LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", settings.Store.Adapter)
	assert.Equal(t, "sqlite:file:traces.db", settings.Store.DSN)
	assert.Equal(t, int64(5000), settings.Loader.EventsPerWindow)
	assert.Equal(t, 4, settings.Loader.QueueCapacity, "unset values keep their default")
	assert.Equal(t, 256, settings.Loader.CancelCheckInterval)
	assert.Equal(t, 20, settings.Store.Pool.MaxConnections)
	assert.Equal(t, []int64{10, 20}, settings.Bench.Intervals)
	require.Len(t, settings.Bench.Experiments, 1)
	assert.Equal(t, 3, settings.Bench.Experiments[0].Runs)
}

func Test_LoadSettings_EmptyPathReturnsDefaults(t *testing.T) {
	settings, err := config.LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, int64(100000), settings.Loader.EventsPerWindow)
}

func Test_LoadSettings_RejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{name: "zero events per window", yaml: "loader:\n  events_per_window: 0\n"},
		{name: "negative queue capacity", yaml: "loader:\n  queue_capacity: -1\n"},
		{name: "unknown adapter", yaml: "store:\n  adapter: mongo\n"},
		{name: "zero pool connections", yaml: "store:\n  pool:\n    max_connections: 0\n"},
		{name: "idle above max", yaml: "store:\n  pool:\n    max_connections: 2\n    min_idle_connections: 3\n"},
		{name: "negative interval", yaml: "bench:\n  intervals: [-1]\n"},
		{name: "malformed yaml", yaml: "loader: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))

			_, err := config.LoadSettings(path)
			assert.ErrorIs(t, err, config.ErrInvalidSettings)
		})
	}
}

func Test_LoadSettings_Accepts_TheWholeTraceInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bench:\n  intervals: [0, 1000]\n"), 0o600))

	settings, err := config.LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1000}, settings.Bench.Intervals)
}

func Test_LoadSettings_MissingFile(t *testing.T) {
	_, err := config.LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
}
