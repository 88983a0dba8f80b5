// Package sqlite opens SQLite databases, either local files through the
// pure-Go modernc driver or remote libsql (Turso) databases.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite = "sqlite"
	driverLibSQL = "libsql"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know the bind type of.
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
	sqlx.BindDriver(driverLibSQL, sqlx.QUESTION)
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		return driverLibSQL
	}
	return driverSQLite
}

// New opens dsn. Local databases get a single connection, which keeps
// in-memory databases alive and serializes writers the way SQLite expects.
func New(ctx context.Context, dsn string) (*sqlx.DB, error) {
	const op = "sqlite.New"

	driver := driverFor(dsn)

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if driver == driverLibSQL {
		return db, nil
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: failed to apply %q: %w", op, pragma, err)
		}
	}

	return db, nil
}
