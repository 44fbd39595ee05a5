package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinkapp/sink/internal/model"
)

// NotificationRepository stores per-member notification queues.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// AddNotification inserts a notification.
func (r *NotificationRepository) AddNotification(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, apartment_code, user_id, type, message, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.ApartmentCode,
		n.UserID,
		n.Type,
		n.Message,
		n.Link,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// ListNotifications returns userID's queue, newest first.
func (r *NotificationRepository) ListNotifications(ctx context.Context, code, userID string) ([]*model.Notification, error) {
	query := `
		SELECT id, apartment_code, user_id, type, message, link, read, created_at
		FROM notifications
		WHERE apartment_code = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, code, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID,
			&n.ApartmentCode,
			&n.UserID,
			&n.Type,
			&n.Message,
			&n.Link,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// MarkAllRead marks userID's queue as read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, code, userID string) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE apartment_code = $1 AND user_id = $2 AND NOT read
	`, code, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected(), nil
}

// RemoveMember clears userID's queue in one apartment.
func (r *NotificationRepository) RemoveMember(ctx context.Context, code, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE apartment_code = $1 AND user_id = $2`, code, userID); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

// Name identifies the store in cleanup reports.
func (r *NotificationRepository) Name() string { return "notifications" }

// PurgeApartment deletes every queue of the apartment.
func (r *NotificationRepository) PurgeApartment(ctx context.Context, code string) error {
	return purgeCode(ctx, r.pool, "notifications", code)
}

// ListApartmentCodes returns the codes that have at least one notification.
func (r *NotificationRepository) ListApartmentCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, "notifications")
}

// MigrateUser moves oldID's notifications into newID's queue.
func (r *NotificationRepository) MigrateUser(ctx context.Context, oldID, newID string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE notifications SET user_id = $2 WHERE user_id = $1`, oldID, newID); err != nil {
		return fmt.Errorf("failed to migrate notifications: %w", err)
	}
	return nil
}
