package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/monsters-of-interest/moi-api/internal/platform/db"
	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	Create(ctx context.Context, user NewUser) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{db: q}
}

const insertUserSQL = `INSERT INTO users (email, password_hash, display_name)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, display_name, account_tier, created_at`

// Create inserts a user. Email uniqueness is left to the users_email_key
// constraint so concurrent registrations cannot both succeed.
func (r *PGRepository) Create(ctx context.Context, user NewUser) (*User, error) {
	var created User
	err := r.db.QueryRow(ctx, insertUserSQL, user.Email, user.PasswordHash, user.DisplayName).Scan(
		&created.ID,
		&created.Email,
		&created.PasswordHash,
		&created.DisplayName,
		&created.AccountTier,
		&created.CreatedAt,
	)
	if err != nil {
		classified := db.Classify(err)
		switch {
		case errors.Is(classified, shared.ErrDuplicate):
			return nil, shared.Conflict("Email already in use.")
		case errors.Is(classified, shared.ErrValidation):
			return nil, shared.Invalid("Registration data violates a storage constraint.")
		}
		return nil, fmt.Errorf("auth: insert user: %w", classified)
	}
	return &created, nil
}

const selectUserByEmailSQL = `SELECT id, email, password_hash, display_name, account_tier, created_at
FROM users WHERE email = $1`

// FindByEmail fetches a user by exact email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx, selectUserByEmailSQL, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AccountTier,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
