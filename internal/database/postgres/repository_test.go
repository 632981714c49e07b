package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/shortline-dev/shortline/internal/database"
	"github.com/shortline-dev/shortline/internal/models"
)

var (
	errUnknown      = errors.New("unknown error")
	errAffectedRows = errors.New("affected rows error")
)

var urlColumns = []string{
	"id", "short_code", "custom_code", "original_url", "visits", "is_active",
	"expiry_date", "password", "owner_id", "created_at", "last_accessed_at",
}

func setupURLRepository(t testing.TB) (*URLRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewURLRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestURLRepository_Create(t *testing.T) {
	t.Run("short code exists", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", nil, "https://example.com", nil, nil, int64(1)).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: shortCodeConstraint})

		url, err := repo.Create(context.TODO(), &models.URL{
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			OwnerID:     1,
		})

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("original url exists", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", nil, "https://example.com", nil, nil, int64(1)).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: originalURLConstraint})

		url, err := repo.Create(context.TODO(), &models.URL{
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			OwnerID:     1,
		})

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrOriginalURLExists)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", nil, "https://example.com", nil, nil, int64(1)).
			WillReturnError(errUnknown)

		url, err := repo.Create(context.TODO(), &models.URL{
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			OwnerID:     1,
		})

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "code1", nil, "https://example.com", 0, true, nil, nil, 1, time.Time{}, nil)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("code1", nil, "https://example.com", nil, nil, int64(1)).
			WillReturnRows(rows)

		wantURL := models.URL{
			ID:          1,
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			IsActive:    true,
			OwnerID:     1,
		}

		url, err := repo.Create(context.TODO(), &models.URL{
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			OwnerID:     1,
		})

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, wantURL, *url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success with optional fields", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		expiry := time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "my-code", "my-code", "https://example.com", 0, true, expiry, "s3cret", 1, time.Time{}, nil)

		mock.ExpectQuery(`INSERT INTO urls`).
			WithArgs("my-code", "my-code", "https://example.com", expiry, "s3cret", int64(1)).
			WillReturnRows(rows)

		url, err := repo.Create(context.TODO(), &models.URL{
			ShortCode:   "my-code",
			CustomCode:  "my-code",
			OriginalURL: "https://example.com",
			ExpiryDate:  &expiry,
			Password:    "s3cret",
			OwnerID:     1,
		})

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "my-code", url.CustomCode)
		assert.Equal(t, "s3cret", url.Password)
		if assert.NotNil(t, url.ExpiryDate) {
			assert.Equal(t, expiry, *url.ExpiryDate)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_GetByShortCode(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("code2").
			WillReturnError(sql.ErrNoRows)

		url, err := repo.GetByShortCode(context.TODO(), "code2")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		url, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "code1", nil, "https://example.com", 3, true, nil, nil, 1, time.Time{}, nil)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("code1").
			WillReturnRows(rows)

		url, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "code1", url.ShortCode)
		assert.Equal(t, int64(3), url.Visits)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_GetByOriginalURL(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("https://example.com").
			WillReturnError(sql.ErrNoRows)

		url, err := repo.GetByOriginalURL(context.TODO(), "https://example.com")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "code1", nil, "https://example.com", 0, true, nil, nil, 1, time.Time{}, nil)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs("https://example.com").
			WillReturnRows(rows)

		url, err := repo.GetByOriginalURL(context.TODO(), "https://example.com")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, "code1", url.ShortCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_ExistsByShortCode(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		exists, err := repo.ExistsByShortCode(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("taken", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("code1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByShortCode(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("free", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("code2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.ExistsByShortCode(context.TODO(), "code2")

		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_RegisterVisit(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs("code2").
			WillReturnError(sql.ErrNoRows)

		url, err := repo.RegisterVisit(context.TODO(), "code2")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		accessed := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "code1", nil, "https://example.com", 4, true, nil, nil, 1, time.Time{}, accessed)

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs("code1").
			WillReturnRows(rows)

		url, err := repo.RegisterVisit(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NotNil(t, url)
		assert.Equal(t, int64(4), url.Visits)
		if assert.NotNil(t, url.LastAccessedAt) {
			assert.Equal(t, accessed, *url.LastAccessedAt)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_UpdateExpiry(t *testing.T) {
	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs(nil, "code2").
			WillReturnError(sql.ErrNoRows)

		url, err := repo.UpdateExpiry(context.TODO(), "code2", nil)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		expiry := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "code1", nil, "https://example.com", 0, true, expiry, nil, 1, time.Time{}, nil)

		mock.ExpectQuery(`UPDATE urls`).
			WithArgs(expiry, "code1").
			WillReturnRows(rows)

		url, err := repo.UpdateExpiry(context.TODO(), "code1", &expiry)

		assert.NoError(t, err)
		assert.NotNil(t, url)
		if assert.NotNil(t, url.ExpiryDate) {
			assert.Equal(t, expiry, *url.ExpiryDate)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_Deactivate(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		err := repo.Deactivate(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code1").
			WillReturnResult(sqlmock.NewErrorResult(errAffectedRows))

		err := repo.Deactivate(context.TODO(), "code1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errAffectedRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("url not found", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Deactivate(context.TODO(), "code2")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectExec(`UPDATE urls`).
			WithArgs("code1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Deactivate(context.TODO(), "code1")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestURLRepository_ListByOwner(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs(int64(1)).
			WillReturnError(errUnknown)

		urls, err := repo.ListByOwner(context.TODO(), 1)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, urls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no urls", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(urlColumns))

		urls, err := repo.ListByOwner(context.TODO(), 1)

		assert.NoError(t, err)
		assert.Empty(t, urls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success includes inactive urls", func(t *testing.T) {
		repo, mock := setupURLRepository(t)

		rows := sqlmock.NewRows(urlColumns).
			AddRow(1, "code1", nil, "https://example.com", 2, true, nil, nil, 1, time.Time{}, nil).
			AddRow(2, "code2", nil, "https://old.example.com", 0, false, nil, nil, 1, time.Time{}, nil)

		mock.ExpectQuery(`SELECT (.+) FROM urls`).
			WithArgs(int64(1)).
			WillReturnRows(rows)

		urls, err := repo.ListByOwner(context.TODO(), 1)

		assert.NoError(t, err)
		assert.Len(t, urls, 2)
		assert.Equal(t, "code1", urls[0].ShortCode)
		assert.True(t, urls[0].IsActive)
		assert.Equal(t, "code2", urls[1].ShortCode)
		assert.False(t, urls[1].IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
