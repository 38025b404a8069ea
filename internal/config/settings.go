package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSettings is returned when a settings file cannot be read or has invalid values.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the YAML configuration of the tracetool commands.
type Settings struct {
	Store     StoreSettings     `yaml:"store"`
	Loader    LoaderSettings    `yaml:"loader"`
	Telemetry TelemetrySettings `yaml:"telemetry"`
	Generator GeneratorSettings `yaml:"generator"`
	Bench     BenchSettings     `yaml:"bench"`
}

// StoreSettings selects and addresses the trace store.
type StoreSettings struct {
	Adapter    string       `yaml:"adapter"`
	DSN        string       `yaml:"dsn"`
	ReplicaDSN string       `yaml:"replica_dsn"`
	Pool       PoolSettings `yaml:"pool"`
}

// PoolSettings sizes the Postgres connection pools. SQLite ignores them.
type PoolSettings struct {
	MaxConnections     int `yaml:"max_connections"`
	MinIdleConnections int `yaml:"min_idle_connections"`
}

// withDefaults fills an unset pool with the default sizes.
func (p PoolSettings) withDefaults() PoolSettings {
	if p.MaxConnections <= 0 {
		return DefaultSettings().Store.Pool
	}

	return p
}

// LoaderSettings tunes the window loader.
type LoaderSettings struct {
	EventsPerWindow     int64 `yaml:"events_per_window"`
	QueueCapacity       int   `yaml:"queue_capacity"`
	CancelCheckInterval int   `yaml:"cancel_check_interval"`
}

// TelemetrySettings selects log level and stdout exporters.
type TelemetrySettings struct {
	LogLevel      string `yaml:"log_level"`
	StdoutTraces  bool   `yaml:"stdout_traces"`
	StdoutMetrics bool   `yaml:"stdout_metrics"`
	StdoutLogs    bool   `yaml:"stdout_logs"`
}

// GeneratorSettings describes a synthetic trace.
//
// Producers counts the inner producers of the tree including its root. Leaves adds leaf producers below them,
// and OnlyLeavesAsProducers makes the leaves the only producers events are drawn for.
type GeneratorSettings struct {
	Alias                 string  `yaml:"alias"`
	Locator               string  `yaml:"locator"`
	Producers             int     `yaml:"producers"`
	Leaves                int     `yaml:"leaves"`
	OnlyLeavesAsProducers bool    `yaml:"only_leaves_as_producers"`
	Types                 int     `yaml:"types"`
	Events                int64   `yaml:"events"`
	LinkRatio             float64 `yaml:"link_ratio"`
	InstantRatio          float64 `yaml:"instant_ratio"`
	VariableRatio         float64 `yaml:"variable_ratio"`
	MaxLinkSpan           int64   `yaml:"max_link_span"`
	Seed                  int64   `yaml:"seed"`
}

// BenchSettings lists the interval read experiments.
type BenchSettings struct {
	Intervals   []int64              `yaml:"intervals"`
	Experiments []ExperimentSettings `yaml:"experiments"`
}

// ExperimentSettings names a trace and how often to read it per interval level.
type ExperimentSettings struct {
	TraceID string `yaml:"trace_id"`
	Runs    int    `yaml:"runs"`
}

// DefaultSettings returns the settings used for values a file leaves out.
func DefaultSettings() Settings {
	return Settings{
		Store: StoreSettings{
			Adapter:    os.Getenv(EnvAdapterType),
			DSN:        DSNFromEnv(),
			ReplicaDSN: ReplicaDSNFromEnv(),
			Pool: PoolSettings{
				MaxConnections:     20,
				MinIdleConnections: 2,
			},
		},
		Loader: LoaderSettings{
			EventsPerWindow:     100000,
			QueueCapacity:       4,
			CancelCheckInterval: 256,
		},
		Telemetry: TelemetrySettings{
			LogLevel: "info",
		},
		Generator: GeneratorSettings{
			Alias:       "generated",
			Locator:     "generated",
			Producers:   16,
			Types:       8,
			Events:      100000,
			MaxLinkSpan: 1000,
			Seed:        1,
		},
		Bench: BenchSettings{
			Intervals: []int64{1000, 10000, 100000},
		},
	}
}

// LoadSettings reads a YAML settings file over the defaults. An empty path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		return settings, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Join(ErrInvalidSettings, err)
	}

	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, errors.Join(ErrInvalidSettings, err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// Validate checks value ranges that the YAML decoder cannot.
func (s Settings) Validate() error {
	if _, err := ParseAdapterType(s.Store.Adapter); err != nil {
		return errors.Join(ErrInvalidSettings, err)
	}

	if s.Store.Pool.MaxConnections <= 0 {
		return fmt.Errorf("%w: pool max_connections must be positive", ErrInvalidSettings)
	}

	if s.Store.Pool.MinIdleConnections < 0 || s.Store.Pool.MinIdleConnections > s.Store.Pool.MaxConnections {
		return fmt.Errorf("%w: pool min_idle_connections must be between 0 and max_connections", ErrInvalidSettings)
	}

	if s.Loader.EventsPerWindow <= 0 {
		return fmt.Errorf("%w: events_per_window must be positive", ErrInvalidSettings)
	}

	if s.Loader.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue_capacity must be positive", ErrInvalidSettings)
	}

	if s.Loader.CancelCheckInterval <= 0 {
		return fmt.Errorf("%w: cancel_check_interval must be positive", ErrInvalidSettings)
	}

	for _, interval := range s.Bench.Intervals {
		if interval < 0 {
			return fmt.Errorf("%w: bench intervals must not be negative", ErrInvalidSettings)
		}
	}

	return nil
}
