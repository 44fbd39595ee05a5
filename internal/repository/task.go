package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sinkapp/sink/internal/model"
)

// TaskRepository stores chores.
type TaskRepository struct {
	pool *pgxpool.Pool
}

const selectTask = `
	SELECT id, apartment_code, title, room, due_at, assignee, created_by, image_key, created_at
	FROM tasks
`

// CreateTask inserts a task.
func (r *TaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (id, apartment_code, title, room, due_at, assignee, created_by, image_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.ApartmentCode,
		task.Title,
		task.Room,
		task.DueAt,
		task.Assignee,
		task.CreatedBy,
		task.ImageKey,
		task.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// ListTasks returns the apartment's tasks ordered by due time.
func (r *TaskRepository) ListTasks(ctx context.Context, code string) ([]*model.Task, error) {
	rows, err := r.pool.Query(ctx, selectTask+` WHERE apartment_code = $1 ORDER BY due_at, created_at`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns one task.
func (r *TaskRepository) GetTask(ctx context.Context, code, id string) (*model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, selectTask+` WHERE apartment_code = $1 AND id = $2`, code, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// DeleteTask removes one task.
func (r *TaskRepository) DeleteTask(ctx context.Context, code, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE apartment_code = $1 AND id = $2`, code, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrRecordNotFound
	}
	return nil
}

// Name identifies the store in cleanup reports.
func (r *TaskRepository) Name() string { return "tasks" }

// PurgeApartment deletes every task of the apartment.
func (r *TaskRepository) PurgeApartment(ctx context.Context, code string) error {
	return purgeCode(ctx, r.pool, "tasks", code)
}

// ListApartmentCodes returns the codes that have at least one task.
func (r *TaskRepository) ListApartmentCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, "tasks")
}

// MigrateUser rewrites task assignees and creators.
func (r *TaskRepository) MigrateUser(ctx context.Context, oldID, newID string) error {
	query := `
		UPDATE tasks
		SET assignee   = CASE WHEN assignee = $1 THEN $2 ELSE assignee END,
		    created_by = CASE WHEN created_by = $1 THEN $2 ELSE created_by END
		WHERE assignee = $1 OR created_by = $1
	`
	if _, err := r.pool.Exec(ctx, query, oldID, newID); err != nil {
		return fmt.Errorf("failed to migrate task users: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.ApartmentCode,
		&t.Title,
		&t.Room,
		&t.DueAt,
		&t.Assignee,
		&t.CreatedBy,
		&t.ImageKey,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
