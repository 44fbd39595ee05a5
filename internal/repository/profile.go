package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinkapp/sink/internal/model"
)

// ProfileRepository stores one profile per member per apartment.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

const selectProfile = `
	SELECT apartment_code, user_id, first_name, last_name, age, apartment_no, room_number, phone, bio, picture_key, updated_at
	FROM profiles
`

// GetProfile returns userID's profile in the apartment.
func (r *ProfileRepository) GetProfile(ctx context.Context, code, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, selectProfile+` WHERE apartment_code = $1 AND user_id = $2`, code, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// SaveProfile inserts or replaces a profile.
func (r *ProfileRepository) SaveProfile(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (apartment_code, user_id, first_name, last_name, age, apartment_no, room_number, phone, bio, picture_key, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (apartment_code, user_id) DO UPDATE SET
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			age          = EXCLUDED.age,
			apartment_no = EXCLUDED.apartment_no,
			room_number  = EXCLUDED.room_number,
			phone        = EXCLUDED.phone,
			bio          = EXCLUDED.bio,
			picture_key  = EXCLUDED.picture_key,
			updated_at   = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		p.ApartmentCode,
		p.UserID,
		p.FirstName,
		p.LastName,
		p.Age,
		p.ApartmentNo,
		p.RoomNumber,
		p.Phone,
		p.Bio,
		p.PictureKey,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// EnsureProfile creates an empty profile unless one exists.
func (r *ProfileRepository) EnsureProfile(ctx context.Context, code, userID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (apartment_code, user_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (apartment_code, user_id) DO NOTHING
	`, code, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// ListProfiles returns every profile in the apartment ordered by user.
func (r *ProfileRepository) ListProfiles(ctx context.Context, code string) ([]*model.Profile, error) {
	rows, err := r.pool.Query(ctx, selectProfile+` WHERE apartment_code = $1 ORDER BY user_id`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return out, nil
}

// DeleteProfile removes userID's profile. Missing profiles are not an error.
func (r *ProfileRepository) DeleteProfile(ctx context.Context, code, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE apartment_code = $1 AND user_id = $2`, code, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// RemoveMember drops the departing member's profile.
func (r *ProfileRepository) RemoveMember(ctx context.Context, code, userID string) error {
	return r.DeleteProfile(ctx, code, userID)
}

// Name identifies the store in cleanup reports.
func (r *ProfileRepository) Name() string { return "profiles" }

// PurgeApartment deletes every profile of the apartment.
func (r *ProfileRepository) PurgeApartment(ctx context.Context, code string) error {
	return purgeCode(ctx, r.pool, "profiles", code)
}

// ListApartmentCodes returns the codes that have at least one profile.
func (r *ProfileRepository) ListApartmentCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, "profiles")
}

// MigrateUser moves oldID's profiles to newID. A profile already stored
// under newID is kept and the old one dropped.
func (r *ProfileRepository) MigrateUser(ctx context.Context, oldID, newID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		DELETE FROM profiles old
		WHERE old.user_id = $1
		  AND EXISTS (
			SELECT 1 FROM profiles cur
			WHERE cur.apartment_code = old.apartment_code AND cur.user_id = $2
		  )
	`, oldID, newID)
	if err != nil {
		return fmt.Errorf("failed to drop shadowed profiles: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE profiles SET user_id = $2 WHERE user_id = $1`, oldID, newID); err != nil {
		return fmt.Errorf("failed to migrate profiles: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit profile migration: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ApartmentCode,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Age,
		&p.ApartmentNo,
		&p.RoomNumber,
		&p.Phone,
		&p.Bio,
		&p.PictureKey,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
