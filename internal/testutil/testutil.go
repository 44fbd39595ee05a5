package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sinkapp/sink/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrations lists the schema migrations in apply order.
var Migrations = []string{
	"000001_users",
	"000002_apartments",
	"000003_apartment_records",
}

// ResetSchema drops and recreates every table by running all down
// migrations in reverse order, then all up migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i := len(Migrations) - 1; i >= 0; i-- {
		if err := ApplyMigration(ctx, pool, Migrations[i], "down"); err != nil {
			return err
		}
	}
	for _, name := range Migrations {
		if err := ApplyMigration(ctx, pool, name, "up"); err != nil {
			return err
		}
	}
	return nil
}

// ApplyMigration runs migrations/<name>.<direction>.sql.
func ApplyMigration(ctx context.Context, pool *pgxpool.Pool, name, direction string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(root, "migrations", name+"."+direction+".sql")
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s migration %s: %w", direction, name, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s migration %s: %w", direction, name, err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestApartment creates an apartment owned by the first member.
func NewTestApartment(t testing.TB, code string, members ...string) *model.Apartment {
	t.Helper()
	if len(members) == 0 {
		t.Fatal("NewTestApartment needs at least one member")
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Apartment{
		Code:      code,
		Owner:     members[0],
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUser creates an account with a placeholder password hash.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHQ$aGFzaGhhc2g",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestTask creates a task due tomorrow.
func NewTestTask(t testing.TB, code, assignee, createdBy string) *model.Task {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Task{
		ID:            ulid.Make().String(),
		ApartmentCode: code,
		Title:         "Take out trash",
		Room:          model.RoomKitchen,
		DueAt:         now.Add(24 * time.Hour),
		Assignee:      assignee,
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}
}

// NewTestNotification creates an unread notification for userID.
func NewTestNotification(t testing.TB, code, userID string) *model.Notification {
	t.Helper()
	return &model.Notification{
		ID:            ulid.Make().String(),
		ApartmentCode: code,
		UserID:        userID,
		Type:          model.NotificationTypeTask,
		Message:       "You were assigned a task",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

// UniqueCode generates a valid apartment code for tests.
func UniqueCode() string {
	id := ulid.Make().String()
	return strings.ToUpper(id[len(id)-6:])
}

// UniqueEmail generates a unique canonical email for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, strings.ToLower(ulid.Make().String()))
}
