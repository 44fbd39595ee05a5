// Package repository provides the PostgreSQL implementation of every record store.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository owns the connection pool and hands out one view per collection.
type Repository struct {
	pool *pgxpool.Pool

	apartments    *ApartmentRepository
	events        *EventRepository
	messages      *MessageRepository
	tasks         *TaskRepository
	notifications *NotificationRepository
	profiles      *ProfileRepository
	users         *UserRepository
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewFromPool(pool), nil
}

// NewFromPool wraps an existing pool. Used by tests.
func NewFromPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:          pool,
		apartments:    &ApartmentRepository{pool: pool},
		events:        &EventRepository{pool: pool},
		messages:      &MessageRepository{pool: pool},
		tasks:         &TaskRepository{pool: pool},
		notifications: &NotificationRepository{pool: pool},
		profiles:      &ProfileRepository{pool: pool},
		users:         &UserRepository{pool: pool},
	}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to the collection views.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// Apartments returns the apartment directory store.
func (r *Repository) Apartments() *ApartmentRepository { return r.apartments }

// Events returns the calendar event store.
func (r *Repository) Events() *EventRepository { return r.events }

// Messages returns the chat message store.
func (r *Repository) Messages() *MessageRepository { return r.messages }

// Tasks returns the task store.
func (r *Repository) Tasks() *TaskRepository { return r.tasks }

// Notifications returns the notification store.
func (r *Repository) Notifications() *NotificationRepository { return r.notifications }

// Profiles returns the profile store.
func (r *Repository) Profiles() *ProfileRepository { return r.profiles }

// Users returns the account store.
func (r *Repository) Users() *UserRepository { return r.users }

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// listCodes runs a SELECT DISTINCT apartment_code query.
func listCodes(ctx context.Context, pool *pgxpool.Pool, table string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT apartment_code FROM %s ORDER BY apartment_code`, table)

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s apartment codes: %w", table, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan apartment code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apartment codes: %w", err)
	}
	return codes, nil
}

// purgeCode deletes every row of table scoped to code.
func purgeCode(ctx context.Context, pool *pgxpool.Pool, table, code string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE apartment_code = $1`, table)
	if _, err := pool.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("failed to purge %s: %w", table, err)
	}
	return nil
}
