package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for sql.DB and sqlx.DB
)

const (
	postgresDriverName = "postgres"
	connMaxLifetime    = time.Hour
	connMaxIdleTime    = 5 * time.Minute
	pgxHealthCheck     = time.Minute
	pgxConnectTimeout  = 5 * time.Second
)

// ErrOpeningDatabaseFailed is returned when a connection cannot be opened or pinged.
var ErrOpeningDatabaseFailed = errors.New("opening database failed")

// PGXPoolConfig parses dsn into a pool config sized by pool. A window load holds one
// connection per running scan, so a bench with several loaders needs MaxConnections of them.
func PGXPoolConfig(dsn string, pool PoolSettings) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	cfg.MaxConns = int32(pool.MaxConnections)
	cfg.MinConns = int32(pool.MinIdleConnections)
	cfg.MaxConnLifetime = connMaxLifetime
	cfg.MaxConnIdleTime = connMaxIdleTime
	cfg.HealthCheckPeriod = pgxHealthCheck
	cfg.ConnConfig.ConnectTimeout = pgxConnectTimeout

	return cfg, nil
}

// OpenPGXPool opens and pings a pgx pool.
func OpenPGXPool(ctx context.Context, dsn string, pool PoolSettings) (*pgxpool.Pool, error) {
	cfg, err := PGXPoolConfig(dsn, pool)
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	if pingErr := db.Ping(ctx); pingErr != nil {
		db.Close()
		return nil, errors.Join(ErrOpeningDatabaseFailed, pingErr)
	}

	return db, nil
}

// OpenPostgresSQLDB opens and pings a *sql.DB on the lib/pq driver.
func OpenPostgresSQLDB(ctx context.Context, dsn string, pool PoolSettings) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	return pingSized(ctx, db, pool)
}

// OpenPostgresSQLX opens and pings a *sqlx.DB on the lib/pq driver.
func OpenPostgresSQLX(ctx context.Context, dsn string, pool PoolSettings) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	if _, err := pingSized(ctx, db.DB, pool); err != nil {
		return nil, err
	}

	return db, nil
}

// pingSized applies the pool limits and pings. db is closed if the ping fails.
func pingSized(ctx context.Context, db *sql.DB, pool PoolSettings) (*sql.DB, error) {
	db.SetMaxOpenConns(pool.MaxConnections)
	db.SetMaxIdleConns(pool.MinIdleConnections)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, errors.Join(ErrOpeningDatabaseFailed, pingErr)
	}

	return db, nil
}
