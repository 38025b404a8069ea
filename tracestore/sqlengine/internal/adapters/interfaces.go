package adapters

import "context"

// DBAdapter is the narrow database surface the trace store needs: plain reads, and
// writes that commit atomically.
type DBAdapter interface {
	// Query runs a read. Rows must be closed by the caller.
	Query(ctx context.Context, query string) (DBRows, error)

	// ExecAll runs the statements in order inside one transaction and returns the summed
	// number of affected rows. Either all statements commit or none do.
	ExecAll(ctx context.Context, statements []string) (int64, error)
}

// DBRows is a forward-only cursor over query results. *sql.Rows satisfies it as is.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
