// Package storewrapper opens the trace store that integration tests run against.
//
// The backend is selected with the ADAPTER_TYPE environment variable:
//
//	ADAPTER_TYPE=""          SQLite file in the test's temp dir (default)
//	ADAPTER_TYPE=sqlite      same as the default
//	ADAPTER_TYPE=pgx.pool    PostgreSQL via pgxpool, DSN from TRACESTORE_DSN
//	ADAPTER_TYPE=sql.db      PostgreSQL via database/sql and lib/pq
//	ADAPTER_TYPE=sqlx.db     PostgreSQL via sqlx
//
// Every trace gets its own tables, so tests against a shared PostgreSQL database do not interfere.
package storewrapper
