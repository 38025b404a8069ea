// Package sqlengine provides a SQL implementation of the trace store, for PostgreSQL and SQLite.
//
// Every trace lives in its own set of tables, named after the trace locator:
//
//	<locator>_event           one row per event, indexed on (ts, end_ts)
//	<locator>_event_producer  producer catalog
//	<locator>_event_type      event type catalog
//
// Trace summaries are kept in a shared table (default "traces").
//
// The store supports three database adapters: pgx.Pool (with an optional read replica),
// database/sql and sqlx. Queries are rendered with goqu, so the same store serves
// PostgreSQL and SQLite (see WithDialect).
//
// Reads go through a Session, which is scoped to one trace and owned by one worker:
//
//	store, err := sqlengine.NewEventStoreFromPGXPool(pool, sqlengine.WithLogger(logger))
//	session, err := store.OpenSession(ctx, trace)
//	defer session.Close()
//	err = session.ReadSlice(ctx, tracestore.SliceQuery{From: t0, To: t1}, visit)
package sqlengine
