package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinkapp/sink/internal/model"
)

// UserRepository stores accounts keyed by canonical email.
type UserRepository struct {
	pool *pgxpool.Pool
}

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateUserEmail changes an account's email.
func (r *UserRepository) UpdateUserEmail(ctx context.Context, oldEmail, newEmail string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET email = $2, updated_at = NOW()
		WHERE email = $1
	`, oldEmail, newEmail)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("failed to update user email: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (r *UserRepository) DeleteUser(ctx context.Context, email string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrRecordNotFound
	}
	return nil
}
