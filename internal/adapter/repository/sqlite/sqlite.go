// Package sqlite implements the link and access record repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/dbmodel"
	"github.com/vadimbarashkov/shortlink/internal/entity"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func isUniqueViolationError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// libsql reports constraint failures as plain text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type LinkRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db, now: time.Now}
}

func (r *LinkRepository) Exists(ctx context.Context, code string) (bool, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Exists"
	const query = `SELECT EXISTS (SELECT 1 FROM links WHERE code = ?)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("%s: failed to query links table: %w", op, err)
	}

	return exists, nil
}

func (r *LinkRepository) Insert(ctx context.Context, code, targetURL string, ownerID *string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Insert"
	const query = `INSERT INTO links(code, target_url, owner_id, created_at) VALUES (?, ?, ?, ?) RETURNING ` + dbmodel.LinkColumns

	var link dbmodel.Link

	if err := r.db.GetContext(ctx, &link, query, code, targetURL, ownerID, r.now().UTC()); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrConflict)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.ToEntity(), nil
}

func (r *LinkRepository) Lookup(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Lookup"
	const query = `SELECT ` + dbmodel.LinkColumns + ` FROM links WHERE code = ?`

	var link dbmodel.Link

	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return link.ToEntity(), nil
}

func (r *LinkRepository) IncrementAndTouch(ctx context.Context, linkID int64) (int64, error) {
	const op = "adapter.repository.sqlite.LinkRepository.IncrementAndTouch"
	const query = `UPDATE links SET click_count = click_count + 1, last_accessed_at = ? WHERE id = ? RETURNING click_count`

	var clicks int64

	if err := r.db.GetContext(ctx, &clicks, query, r.now().UTC(), linkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		}

		return 0, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return clicks, nil
}

type AccessRepository struct {
	db *sqlx.DB
}

func NewAccessRepository(db *sqlx.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

func (r *AccessRepository) Append(ctx context.Context, rec *entity.AccessRecord) error {
	const op = "adapter.repository.sqlite.AccessRepository.Append"
	const query = `INSERT INTO access_records(link_id, ip_address, city, region, country, coordinates, organization, ` +
		`postal_code, timezone, browser_family, browser_version, os_family, os_version, device_family, observed_at) ` +
		`VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	row := dbmodel.NewAccessRecord(rec)
	row.ObservedAt = row.ObservedAt.UTC()

	if err := r.db.GetContext(ctx, &rec.ID, query, row.Args()...); err != nil {
		return fmt.Errorf("%s: failed to insert into access_records table: %w", op, err)
	}

	return nil
}

func (r *AccessRepository) ListByLink(ctx context.Context, linkID int64, limit int) ([]entity.AccessRecord, error) {
	const op = "adapter.repository.sqlite.AccessRepository.ListByLink"
	const query = `SELECT ` + dbmodel.AccessColumns + ` FROM access_records WHERE link_id = ? ORDER BY observed_at DESC, id DESC LIMIT ?`

	var rows []dbmodel.AccessRecord

	if err := r.db.SelectContext(ctx, &rows, query, linkID, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to select from access_records table: %w", op, err)
	}

	recs := make([]entity.AccessRecord, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].ToEntity())
	}

	return recs, nil
}
