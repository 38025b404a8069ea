package config

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver" // sqlite3 driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded sqlite wasm build
)

const sqliteDriverName = "sqlite3"

// ErrEmptySQLiteDSN is returned when a "sqlite:" DSN does not name a database.
var ErrEmptySQLiteDSN = errors.New("sqlite dsn must name a database")

// OpenSQLite opens and pings a SQLite database. The DSN may carry the "sqlite:" prefix.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if IsSQLiteDSN(dsn) {
		dsn = dsn[len(sqlitePrefix):]
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptySQLiteDSN
	}

	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, errors.Join(ErrOpeningDatabaseFailed, pingErr)
	}

	return db, nil
}
