package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore"
)

// PGXAdapter implements DBAdapter for pgxpool.Pool, with an optional read replica.
type PGXAdapter struct {
	primary *pgxpool.Pool
	replica *pgxpool.Pool
}

// NewPGXAdapter creates a new PGX adapter reading and writing through one pool.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{primary: pool}
}

// NewPGXAdapterWithReplica creates a new PGX adapter that sends eventually consistent reads to replica.
func NewPGXAdapterWithReplica(pool *pgxpool.Pool, replica *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{primary: pool, replica: replica}
}

// readPool picks the pool for a read. Window reads of a finished trace tolerate replica lag,
// the catalog and trace metadata reads after a fresh import do not.
func (p *PGXAdapter) readPool(ctx context.Context) *pgxpool.Pool {
	if p.replica != nil && tracestore.ReadRouteFrom(ctx) == tracestore.ReplicaReads {
		return p.replica
	}

	return p.primary
}

func (p *PGXAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := p.readPool(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgxRows{Rows: rows}, nil
}

func (p *PGXAdapter) ExecAll(ctx context.Context, statements []string) (int64, error) {
	var affected int64

	err := pgx.BeginTxFunc(ctx, p.primary, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, statement := range statements {
			tag, err := tx.Exec(ctx, statement)
			if err != nil {
				return err
			}

			affected += tag.RowsAffected()
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}

// pgxRows adapts pgx.Rows, whose Close has no error result.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return nil
}
