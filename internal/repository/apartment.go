package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/model"
)

// ApartmentRepository implements directory.Store on the apartments table.
type ApartmentRepository struct {
	pool *pgxpool.Pool
}

var _ directory.Store = (*ApartmentRepository)(nil)

const selectApartment = `
	SELECT code, owner_id, members, created_at, updated_at
	FROM apartments
`

// GetApartment retrieves an apartment by its code.
func (r *ApartmentRepository) GetApartment(ctx context.Context, code string) (*model.Apartment, error) {
	apt, err := scanApartment(r.pool.QueryRow(ctx, selectApartment+` WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get apartment: %w", err)
	}
	return apt, nil
}

// ListApartmentsForUser returns the apartments listing userID, oldest first.
func (r *ApartmentRepository) ListApartmentsForUser(ctx context.Context, userID string) ([]*model.Apartment, error) {
	query := selectApartment + `
		WHERE $1 = ANY (members)
		ORDER BY created_at, code
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list apartments for user: %w", err)
	}
	defer rows.Close()

	var out []*model.Apartment
	for rows.Next() {
		apt, err := scanApartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan apartment: %w", err)
		}
		out = append(out, apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apartments: %w", err)
	}
	return out, nil
}

// MutateApartment locks the row with SELECT ... FOR UPDATE, applies fn and
// writes the result in the same transaction.
func (r *ApartmentRepository) MutateApartment(ctx context.Context, code string, fn directory.MutateFunc) (*model.Apartment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanApartment(tx.QueryRow(ctx, selectApartment+` WHERE code = $1 FOR UPDATE`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		current, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock apartment: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	switch {
	case next == nil:
		if current == nil {
			return nil, nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM apartments WHERE code = $1`, code); err != nil {
			return nil, fmt.Errorf("failed to delete apartment: %w", err)
		}
	case next == current:
		return current, nil
	case next.Code != code:
		return nil, directory.ErrInvalidInput
	case current == nil:
		_, err := tx.Exec(ctx, `
			INSERT INTO apartments (code, owner_id, members, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, next.Code, next.Owner, pq.Array(next.Members), next.CreatedAt, next.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, directory.ErrAlreadyExists
			}
			return nil, fmt.Errorf("failed to create apartment: %w", err)
		}
	default:
		_, err := tx.Exec(ctx, `
			UPDATE apartments
			SET owner_id = $2, members = $3, updated_at = $4
			WHERE code = $1
		`, next.Code, next.Owner, pq.Array(next.Members), next.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to update apartment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, directory.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to commit apartment: %w", err)
	}
	return next, nil
}

// Exists reports whether an apartment record exists for code.
func (r *ApartmentRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM apartments WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check apartment existence: %w", err)
	}
	return exists, nil
}

// scanApartment scans a row into an Apartment model.
func scanApartment(row pgx.Row) (*model.Apartment, error) {
	var apt model.Apartment
	err := row.Scan(
		&apt.Code,
		&apt.Owner,
		&apt.Members,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &apt, nil
}
