// Package adapters puts pgxpool.Pool, sql.DB and sqlx.DB behind one DBAdapter, so the trace
// store renders SQL once and runs it on any of them. SQLite connections opened through
// database/sql use the sql.DB adapter.
//
// Writes always run in a transaction: ExecAll commits a whole event append, a trace schema
// or a trace summary replacement at once.
package adapters
