package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shortline-dev/shortline/internal/database"
	"github.com/shortline-dev/shortline/internal/models"
)

type userRecord struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Role     string `db:"role"`
}

func (r *userRecord) ToUser() *models.User {
	return &models.User{
		ID:       r.ID,
		Username: r.Username,
		Role:     r.Role,
	}
}

// UserRepository provides the user-lookup capability the service resolves
// callers and owners against. User management itself lives elsewhere.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "database.postgres.UserRepository.GetByID"

	rec := new(userRecord)
	query := `SELECT id, username, role FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get user record: %w", op, err)
	}

	return rec.ToUser(), nil
}
