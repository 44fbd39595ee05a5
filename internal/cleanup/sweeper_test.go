package cleanup

import (
	"context"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/model"
)

func TestSweepOnce_PurgesOnlyOrphans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memstore.New()
	dir := directory.New(store.Apartments(), nil)
	manager := membership.NewManager(dir, store.Profiles(), []membership.ScopedStore{
		store.Events(), store.Messages(), store.Tasks(), store.Notifications(), store.Profiles(),
	}, nil)

	if _, err := dir.Create(ctx, "LIVE01", "alice@x.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now := time.Now().UTC()
	for _, code := range []string{"LIVE01", "DEAD01", "DEAD02"} {
		if err := store.Messages().CreateMessage(ctx, &model.ChatMessage{ID: code, ApartmentCode: code, Sender: "x@x.com", Text: "hi", CreatedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Tasks().CreateTask(ctx, &model.Task{ID: "t1", ApartmentCode: "DEAD02", Title: "Trash", Room: model.RoomOther, Assignee: model.AssigneeEveryone, DueAt: now}); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(manager, []CodeLister{store.Events(), store.Messages(), store.Tasks()}, slog.Default())
	result, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}

	if result.Scanned != 3 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
	if !slices.Equal(result.Purged, []string{"DEAD01", "DEAD02"}) {
		t.Errorf("Purged = %v", result.Purged)
	}

	codes, _ := store.Messages().ListApartmentCodes(ctx)
	if !slices.Equal(codes, []string{"LIVE01"}) {
		t.Errorf("message codes after sweep = %v", codes)
	}
	if tasks, _ := store.Tasks().ListTasks(ctx, "DEAD02"); len(tasks) != 0 {
		t.Errorf("orphaned tasks survived the sweep")
	}
}

func TestSweeper_EmptyScheduleDisables(t *testing.T) {
	t.Parallel()

	s := NewSweeper(nil, nil, slog.Default())
	if err := s.Start(""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSweeper_RejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := NewSweeper(nil, nil, slog.Default())
	if err := s.Start("every now and then"); err == nil {
		t.Error("expected error for invalid cron schedule")
	}
}
