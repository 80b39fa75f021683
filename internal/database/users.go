package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/benvon/moodhome/internal/errors"
	"github.com/benvon/moodhome/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, provider_id, name, email_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var created, updated int64
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.ProviderID,
		&user.Name,
		&user.EmailVerified,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(created)
	user.UpdatedAt = fromMillis(updated)
	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.db.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.ProviderID, user.Name, user.EmailVerified, millis(now), millis(now))
	if err != nil {
		return storeErr("create user", err)
	}
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getBy(ctx, "id", id, id.String())
}

// GetByProviderID retrieves a user by OIDC subject
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	return r.getBy(ctx, "provider_id", providerID, providerID)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email, email)
}

func (r *UserRepository) getBy(ctx context.Context, column string, value any, label string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column), value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("user", label)
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return user, nil
}

// Update updates an existing user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	now := r.db.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, provider_id = $3, name = $4, email_verified = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.Email, user.ProviderID, user.Name, user.EmailVerified, millis(now))
	if err != nil {
		return storeErr("update user", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storeErr("update user", err)
	} else if n == 0 {
		return apperrors.NewNotFound("user", user.ID.String())
	}
	user.UpdatedAt = now
	return nil
}

// Delete deletes a user and, by cascade, everything they own except execution records.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete user", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return storeErr("delete user", err)
	} else if n == 0 {
		return apperrors.NewNotFound("user", id.String())
	}
	return nil
}
