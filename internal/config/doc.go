// Package config builds trace store connections and tool settings.
//
// It resolves DSNs from the environment, opens connections for every supported adapter
// (pgx.Pool, sql.DB with lib/pq, sqlx.DB, SQLite through ncruces/go-sqlite3), loads the
// YAML settings of the tracetool commands and sets up stdout OpenTelemetry providers.
package config
