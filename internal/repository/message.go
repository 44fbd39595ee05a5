package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinkapp/sink/internal/model"
)

// MessageRepository stores group chat messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// CreateMessage inserts a chat message.
func (r *MessageRepository) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, apartment_code, sender, body, attachment_key, attachment_type, attachment_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.ApartmentCode,
		msg.Sender,
		msg.Text,
		msg.AttachmentKey,
		msg.AttachmentType,
		msg.AttachmentName,
		msg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListMessages returns the most recent limit messages, oldest first.
func (r *MessageRepository) ListMessages(ctx context.Context, code string, limit int) ([]*model.ChatMessage, error) {
	query := `
		SELECT id, apartment_code, sender, body, attachment_key, attachment_type, attachment_name, created_at
		FROM (
			SELECT *
			FROM chat_messages
			WHERE apartment_code = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id
	`

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, query, code, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*model.ChatMessage, 0)
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(
			&m.ID,
			&m.ApartmentCode,
			&m.Sender,
			&m.Text,
			&m.AttachmentKey,
			&m.AttachmentType,
			&m.AttachmentName,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return msgs, nil
}

// Name identifies the store in cleanup reports.
func (r *MessageRepository) Name() string { return "messages" }

// PurgeApartment deletes the apartment's chat history.
func (r *MessageRepository) PurgeApartment(ctx context.Context, code string) error {
	return purgeCode(ctx, r.pool, "chat_messages", code)
}

// ListApartmentCodes returns the codes that have at least one message.
func (r *MessageRepository) ListApartmentCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, "chat_messages")
}

// MigrateUser rewrites message senders.
func (r *MessageRepository) MigrateUser(ctx context.Context, oldID, newID string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE chat_messages SET sender = $2 WHERE sender = $1`, oldID, newID); err != nil {
		return fmt.Errorf("failed to migrate message senders: %w", err)
	}
	return nil
}
