// Command migrate-identity rewrites every stored reference to one user id
// so it refers to another. It repairs accounts whose email changed while a
// store was unavailable; runs are idempotent and may be repeated.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/sinkapp/sink/internal/cache"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/model"
	"github.com/sinkapp/sink/internal/repository"
)

type output struct {
	OldID       string            `json:"old_id"`
	NewID       string            `json:"new_id"`
	Credentials string            `json:"credentials"`
	Migrated    []string          `json:"migrated"`
	Failed      map[string]string `json:"failed,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		redisURL    = flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection string; clears cached memberships when set")
		from        = flag.String("from", "", "Current user id (email)")
		to          = flag.String("to", "", "New user id (email)")
		moveLogin   = flag.Bool("credentials", true, "Also rename the sign-in account")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "-from and -to are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	var dirOpts []directory.Option
	if *redisURL != "" {
		c, err := cache.New(ctx, *redisURL, cache.WithPoolSize(4), cache.WithClientName("sink-migrate-identity"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "connect redis:", err)
			os.Exit(1)
		}
		defer c.Close()
		dirOpts = append(dirOpts, directory.WithCache(c))
	}
	dir := directory.New(repo.Apartments(), logger, dirOpts...)

	out := output{
		OldID:       identity.Normalize(*from),
		NewID:       identity.Normalize(*to),
		Credentials: "skipped",
	}

	if *moveLogin {
		out.Credentials, err = renameCredentials(ctx, repo, out.OldID, out.NewID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	resolver := identity.NewResolver(logger, nil,
		dir, repo.Profiles(), repo.Messages(), repo.Tasks(), repo.Events(), repo.Notifications(),
	)
	report, migrateErr := resolver.Migrate(ctx, out.OldID, out.NewID)
	if report == nil {
		fmt.Fprintln(os.Stderr, "migrate:", migrateErr)
		os.Exit(1)
	}
	out.Migrated = report.Migrated
	if len(report.Failed) > 0 {
		out.Failed = make(map[string]string, len(report.Failed))
		for name, ferr := range report.Failed {
			out.Failed[name] = ferr.Error()
		}
	}

	if err := writeOutput(*format, out); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if migrateErr != nil {
		os.Exit(2)
	}
}

// renameCredentials moves the sign-in account. A missing old account is
// fine when the new one already exists from an earlier run.
func renameCredentials(ctx context.Context, repo *repository.Repository, oldID, newID string) (string, error) {
	users := repo.Users()
	err := users.UpdateUserEmail(ctx, oldID, newID)
	switch {
	case err == nil:
		return "renamed", nil
	case errors.Is(err, model.ErrRecordNotFound):
		if _, getErr := users.GetUserByEmail(ctx, newID); getErr == nil {
			return "already_renamed", nil
		}
		return "", fmt.Errorf("no account for %s or %s", oldID, newID)
	default:
		return "", fmt.Errorf("rename account: %w", err)
	}
}

func writeOutput(format string, out output) error {
	switch format {
	case "json":
		payload, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		fmt.Println(string(payload))
		return nil
	case "plain":
		fmt.Printf("from: %s\n", out.OldID)
		fmt.Printf("to: %s\n", out.NewID)
		fmt.Printf("credentials: %s\n", out.Credentials)
		for _, name := range out.Migrated {
			fmt.Printf("migrated: %s\n", name)
		}
		failed := make([]string, 0, len(out.Failed))
		for name := range out.Failed {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		for _, name := range failed {
			fmt.Printf("failed: %s (%s)\n", name, out.Failed[name])
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
