package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/trace-window-loader-go/internal/config"
	"github.com/AntonStoeckl/trace-window-loader-go/tracestore/sqlengine"
	"github.com/AntonStoeckl/trace-window-loader-go/windowloader"
)

const (
	serviceName     = "tracetool"
	shutdownTimeout = 5 * time.Second
)

// rootOptions are the persistent flags shared by all commands. Flags win over the settings file.
type rootOptions struct {
	configPath string
	dsn        string
	adapter    string
	logLevel   string
}

// NewRootCommand creates the tracetool command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	command := &cobra.Command{
		Use:          serviceName,
		Short:        "Generate, list, load, group and benchmark stored traces",
		SilenceUsage: true,
	}

	command.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML settings file")
	command.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "trace store DSN, a sqlite: prefix selects SQLite")
	command.PersistentFlags().StringVar(&opts.adapter, "adapter", "", "database adapter: pgx.pool, sql.db, sqlx.db or sqlite")
	command.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	command.AddCommand(
		NewGenerateCommand(opts),
		NewListCommand(opts),
		NewLoadCommand(opts),
		NewGroupCommand(opts),
		NewBenchCommand(opts),
	)

	return command
}

// environment is the opened store and telemetry of one command run.
type environment struct {
	settings  config.Settings
	telemetry *config.Telemetry
	store     *config.Store
}

func (o *rootOptions) settings() (config.Settings, error) {
	settings, err := config.LoadSettings(o.configPath)
	if err != nil {
		return config.Settings{}, err
	}

	if o.dsn != "" {
		settings.Store.DSN = o.dsn
	}

	if o.adapter != "" {
		settings.Store.Adapter = o.adapter
	}

	if o.logLevel != "" {
		settings.Telemetry.LogLevel = o.logLevel
	}

	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}

	return settings, nil
}

// setup opens telemetry on the command's error stream and the trace store, and makes sure the traces table exists.
func (o *rootOptions) setup(cmd *cobra.Command) (*environment, error) {
	settings, err := o.settings()
	if err != nil {
		return nil, err
	}

	telemetry, err := config.NewTelemetry(settings.Telemetry, serviceName, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	store, err := config.OpenStore(cmd.Context(), settings.Store,
		sqlengine.WithLogger(telemetry.Logger),
		sqlengine.WithContextualLogger(telemetry.ContextualLogger),
		sqlengine.WithMetrics(telemetry.Metrics),
		sqlengine.WithTracing(telemetry.Tracing),
	)
	if err != nil {
		_ = telemetry.Shutdown(cmd.Context())
		return nil, err
	}

	env := &environment{settings: settings, telemetry: telemetry, store: store}

	if err := store.CreateTracesTable(cmd.Context()); err != nil {
		env.close()
		return nil, err
	}

	return env, nil
}

func (e *environment) close() {
	e.store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.telemetry.Shutdown(ctx); err != nil {
		e.telemetry.Logger.Warn("telemetry shutdown failed", "error", err.Error())
	}
}

func (e *environment) loaderOptions() []windowloader.Option {
	return []windowloader.Option{
		windowloader.WithEventsPerWindow(e.settings.Loader.EventsPerWindow),
		windowloader.WithQueueCapacity(e.settings.Loader.QueueCapacity),
		windowloader.WithCancelCheckInterval(e.settings.Loader.CancelCheckInterval),
		windowloader.WithLogger(e.telemetry.Logger),
		windowloader.WithContextualLogger(e.telemetry.ContextualLogger),
		windowloader.WithMetrics(e.telemetry.Metrics),
		windowloader.WithTracing(e.telemetry.Tracing),
	}
}
