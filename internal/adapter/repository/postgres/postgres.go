package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/dbmodel"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Exists(ctx context.Context, code string) (bool, error) {
	const op = "adapter.repository.postgres.LinkRepository.Exists"
	const query = `SELECT EXISTS (SELECT 1 FROM links WHERE code = $1)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("%s: failed to query links table: %w", op, err)
	}

	return exists, nil
}

func (r *LinkRepository) Insert(ctx context.Context, code, targetURL string, ownerID *string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Insert"
	const query = `INSERT INTO links(code, target_url, owner_id) VALUES ($1, $2, $3) RETURNING ` + dbmodel.LinkColumns

	var link dbmodel.Link

	if err := r.db.GetContext(ctx, &link, query, code, targetURL, ownerID); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrConflict)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.ToEntity(), nil
}

func (r *LinkRepository) Lookup(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Lookup"
	const query = `SELECT ` + dbmodel.LinkColumns + ` FROM links WHERE code = $1`

	var link dbmodel.Link

	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return link.ToEntity(), nil
}

// IncrementAndTouch bumps the click count in a single statement so that
// concurrent resolutions never lose an update.
func (r *LinkRepository) IncrementAndTouch(ctx context.Context, linkID int64) (int64, error) {
	const op = "adapter.repository.postgres.LinkRepository.IncrementAndTouch"
	const query = `UPDATE links SET click_count = click_count + 1, last_accessed_at = NOW() WHERE id = $1 RETURNING click_count`

	var clicks int64

	if err := r.db.GetContext(ctx, &clicks, query, linkID); err != nil {
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
	const op = "adapter.repository.postgres.AccessRepository.Append"
	const query = `INSERT INTO access_records(link_id, ip_address, city, region, country, coordinates, organization, ` +
		`postal_code, timezone, browser_family, browser_version, os_family, os_version, device_family, observed_at) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`

	row := dbmodel.NewAccessRecord(rec)

	if err := r.db.GetContext(ctx, &rec.ID, query, row.Args()...); err != nil {
		return fmt.Errorf("%s: failed to insert into access_records table: %w", op, err)
	}

	return nil
}

func (r *AccessRepository) ListByLink(ctx context.Context, linkID int64, limit int) ([]entity.AccessRecord, error) {
	const op = "adapter.repository.postgres.AccessRepository.ListByLink"
	const query = `SELECT ` + dbmodel.AccessColumns + ` FROM access_records WHERE link_id = $1 ORDER BY observed_at DESC, id DESC LIMIT $2`

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
