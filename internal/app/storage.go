package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/migrations"
	"github.com/vadimbarashkov/shortlink/pkg/postgres"
	"github.com/vadimbarashkov/shortlink/pkg/sqlite"

	pgrepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	sqliterepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/sqlite"
)

type linkStore interface {
	Exists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, code, targetURL string, ownerID *string) (*entity.Link, error)
	Lookup(ctx context.Context, code string) (*entity.Link, error)
	IncrementAndTouch(ctx context.Context, linkID int64) (int64, error)
}

type accessStore interface {
	Append(ctx context.Context, rec *entity.AccessRecord) error
	ListByLink(ctx context.Context, linkID int64, limit int) ([]entity.AccessRecord, error)
}

type stores struct {
	links  linkStore
	access accessStore
	db     *sqlx.DB
}

func (s *stores) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// openStores connects the configured storage driver and brings its schema up to date.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	const op = "app.openStores"

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.New()
		return &stores{links: store, access: store}, nil

	case config.DriverSQLite:
		dsn := cfg.DatabaseDSN()

		db, err := sqlite.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := sqlite.RunMigrations(db, migrations.FS, migrations.SQLiteDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return &stores{
			links:  sqliterepo.NewLinkRepository(db),
			access: sqliterepo.NewAccessRepository(db),
			db:     db,
		}, nil

	case config.DriverPostgres:
		dsn := cfg.DatabaseDSN()

		db, err := postgres.New(ctx, dsn, postgres.Pool{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := postgres.RunMigrations(migrations.FS, migrations.PostgresDir, dsn); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return &stores{
			links:  pgrepo.NewLinkRepository(db),
			access: pgrepo.NewAccessRepository(db),
			db:     db,
		}, nil

	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
	}
}
