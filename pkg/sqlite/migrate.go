package sqlite

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// RunMigrations applies the migrations found under dir in fsys to db and
// records the applied version in schema_migrations.
func RunMigrations(db *sqlx.DB, fsys fs.FS, dir string) error {
	const op = "sqlite.RunMigrations"

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("%s: failed to open migrations source: %w", op, err)
	}
	// The migrate instance is not closed: its driver would close db with it.
	defer src.Close()

	drv, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations driver: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}
