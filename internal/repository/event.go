package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinkapp/sink/internal/model"
)

// EventRepository stores calendar events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// CreateEvent inserts a new calendar event.
func (r *EventRepository) CreateEvent(ctx context.Context, event *model.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (id, apartment_code, title, starts_at, ends_at, location, details, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ApartmentCode,
		event.Title,
		event.StartsAt,
		event.EndsAt,
		event.Location,
		event.Details,
		event.CreatedBy,
		event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// ListEvents returns the apartment's events ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, code string) ([]*model.CalendarEvent, error) {
	query := `
		SELECT id, apartment_code, title, starts_at, ends_at, location, details, created_by, created_at
		FROM calendar_events
		WHERE apartment_code = $1
		ORDER BY starts_at, created_at
	`

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.CalendarEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// DeleteEvent removes one event.
func (r *EventRepository) DeleteEvent(ctx context.Context, code, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM calendar_events WHERE apartment_code = $1 AND id = $2`, code, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrRecordNotFound
	}
	return nil
}

// Name identifies the store in cleanup reports.
func (r *EventRepository) Name() string { return "events" }

// PurgeApartment deletes every event of the apartment.
func (r *EventRepository) PurgeApartment(ctx context.Context, code string) error {
	return purgeCode(ctx, r.pool, "calendar_events", code)
}

// ListApartmentCodes returns the codes that have at least one event.
func (r *EventRepository) ListApartmentCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, "calendar_events")
}

// MigrateUser rewrites the creator of events.
func (r *EventRepository) MigrateUser(ctx context.Context, oldID, newID string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE calendar_events SET created_by = $2 WHERE created_by = $1`, oldID, newID); err != nil {
		return fmt.Errorf("failed to migrate event creators: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	err := row.Scan(
		&e.ID,
		&e.ApartmentCode,
		&e.Title,
		&e.StartsAt,
		&e.EndsAt,
		&e.Location,
		&e.Details,
		&e.CreatedBy,
		&e.CreatedAt,
	)
	return &e, err
}
