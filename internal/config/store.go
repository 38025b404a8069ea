package config

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/trace-window-loader-go/tracestore/sqlengine"
)

// Store is an opened trace store together with the connections backing it.
type Store struct {
	*sqlengine.EventStore
	closers []func()
}

// Close releases all connections of the store.
func (s *Store) Close() {
	for _, closeFn := range s.closers {
		closeFn()
	}
}

// OpenStore opens a trace store for the adapter and DSNs in the settings.
// A "sqlite:" DSN always selects the SQLite adapter. The replica DSN is only used by pgx.pool.
// An unset pool gets the default sizes.
func OpenStore(ctx context.Context, settings StoreSettings, options ...sqlengine.Option) (*Store, error) {
	settings.Pool = settings.Pool.withDefaults()

	adapter, err := ParseAdapterType(settings.Adapter)
	if err != nil {
		return nil, err
	}

	if IsSQLiteDSN(settings.DSN) {
		adapter = AdapterSQLite
	}

	switch adapter {
	case AdapterSQLite:
		db, err := OpenSQLite(ctx, settings.DSN)
		if err != nil {
			return nil, err
		}

		es, err := sqlengine.NewEventStoreFromSQLDB(db, append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite)}, options...)...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return &Store{EventStore: es, closers: []func(){func() { _ = db.Close() }}}, nil

	case AdapterSQLDB:
		db, err := OpenPostgresSQLDB(ctx, settings.DSN, settings.Pool)
		if err != nil {
			return nil, err
		}

		es, err := sqlengine.NewEventStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return &Store{EventStore: es, closers: []func(){func() { _ = db.Close() }}}, nil

	case AdapterSQLXDB:
		db, err := OpenPostgresSQLX(ctx, settings.DSN, settings.Pool)
		if err != nil {
			return nil, err
		}

		es, err := sqlengine.NewEventStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return &Store{EventStore: es, closers: []func(){func() { _ = db.Close() }}}, nil

	default:
		return openPGXStore(ctx, settings, options...)
	}
}

func openPGXStore(ctx context.Context, settings StoreSettings, options ...sqlengine.Option) (*Store, error) {
	pool, err := OpenPGXPool(ctx, settings.DSN, settings.Pool)
	if err != nil {
		return nil, err
	}

	if settings.ReplicaDSN == "" {
		es, err := sqlengine.NewEventStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, err
		}

		return &Store{EventStore: es, closers: []func(){pool.Close}}, nil
	}

	replica, err := OpenPGXPool(ctx, settings.ReplicaDSN, settings.Pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	es, err := sqlengine.NewEventStoreFromPGXPoolAndReplica(pool, replica, options...)
	if err != nil {
		pool.Close()
		replica.Close()

		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	return &Store{EventStore: es, closers: []func(){replica.Close, pool.Close}}, nil
}
