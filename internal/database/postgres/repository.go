package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shortline-dev/shortline/internal/database"
	"github.com/shortline-dev/shortline/internal/models"
)

type urlRecord struct {
	ID             int64          `db:"id"`
	ShortCode      string         `db:"short_code"`
	CustomCode     sql.NullString `db:"custom_code"`
	OriginalURL    string         `db:"original_url"`
	Visits         sql.NullInt64  `db:"visits"`
	IsActive       bool           `db:"is_active"`
	ExpiryDate     sql.NullTime   `db:"expiry_date"`
	Password       sql.NullString `db:"password"`
	OwnerID        int64          `db:"owner_id"`
	CreatedAt      time.Time      `db:"created_at"`
	LastAccessedAt sql.NullTime   `db:"last_accessed_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		CustomCode:  r.CustomCode.String,
		OriginalURL: r.OriginalURL,
		Visits:      r.Visits.Int64,
		IsActive:    r.IsActive,
		Password:    r.Password.String,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt,
	}

	if r.ExpiryDate.Valid {
		t := r.ExpiryDate.Time
		url.ExpiryDate = &t
	}
	if r.LastAccessedAt.Valid {
		t := r.LastAccessedAt.Time
		url.LastAccessedAt = &t
	}

	return url
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create inserts a new record. Unique violations are mapped to
// database.ErrShortCodeExists or database.ErrOriginalURLExists depending
// on which constraint the insert tripped.
func (r *URLRepository) Create(ctx context.Context, url *models.URL) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, custom_code, original_url, expiry_date, password, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		url.ShortCode,
		nullString(url.CustomCode),
		url.OriginalURL,
		nullTime(url.ExpiryDate),
		nullString(url.Password),
		url.OwnerID,
	)
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			switch constraint {
			case originalURLConstraint:
				return nil, fmt.Errorf("%s: %w", op, database.ErrOriginalURLExists)
			default:
				return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
			}
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE original_url = $1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.URLRepository.ExistsByShortCode"

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, fmt.Errorf("%s: failed to check short code: %w", op, err)
	}

	return exists, nil
}

// RegisterVisit bumps the visit counter and access timestamp in a single
// statement so concurrent resolutions never lose increments.
func (r *URLRepository) RegisterVisit(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.RegisterVisit"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET visits = COALESCE(visits, 0) + 1, last_accessed_at = now()
		WHERE short_code = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to register visit: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) UpdateExpiry(ctx context.Context, shortCode string, expiryDate *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.UpdateExpiry"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET expiry_date = $1
		WHERE short_code = $2
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, nullTime(expiryDate), shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Deactivate soft-deletes the record. The row is kept so the short code
// stays reserved.
func (r *URLRepository) Deactivate(ctx context.Context, shortCode string) error {
	const op = "database.postgres.URLRepository.Deactivate"

	query := `UPDATE urls SET is_active = FALSE WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to deactivate url record: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

func (r *URLRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.URL, error) {
	const op = "database.postgres.URLRepository.ListByOwner"

	var recs []urlRecord
	query := `SELECT * FROM urls WHERE owner_id = $1 ORDER BY id`

	if err := r.db.SelectContext(ctx, &recs, query, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	urls := make([]*models.URL, 0, len(recs))
	for i := range recs {
		urls = append(urls, recs[i].ToURL())
	}

	return urls, nil
}
