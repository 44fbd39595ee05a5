package directory_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/model"
)

func newDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	return directory.New(memstore.New().Apartments(), nil)
}

func TestCreate_ThenFindForUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)

	apt, err := d.Create(ctx, "ab12cd", "Alice@X.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if apt.Code != "AB12CD" || apt.Owner != "alice@x.com" {
		t.Fatalf("Create() = %+v", apt)
	}

	found, err := d.FindForUser(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("FindForUser() error = %v", err)
	}
	if found.Code != "AB12CD" || !slices.Equal(found.Members, []string{"alice@x.com"}) {
		t.Errorf("FindForUser() = %+v", found)
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)

	if _, err := d.Create(ctx, "AB12CD", "a@x.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := d.Create(ctx, "AB12CD", "b@x.com"); !errors.Is(err, directory.ErrAlreadyExists) {
		t.Errorf("second Create() error = %v, want ErrAlreadyExists", err)
	}
}

func TestCreate_InvalidInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)

	if _, err := d.Create(ctx, "AB1", "a@x.com"); !errors.Is(err, directory.ErrInvalidInput) {
		t.Errorf("short code error = %v, want ErrInvalidInput", err)
	}
	if _, err := d.Create(ctx, "AB12CD", "  "); !errors.Is(err, directory.ErrInvalidInput) {
		t.Errorf("empty owner error = %v, want ErrInvalidInput", err)
	}
}

func TestGetByCode_NotFound(t *testing.T) {
	t.Parallel()
	d := newDirectory(t)

	if _, err := d.GetByCode(context.Background(), "ZZZZZZ"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("GetByCode() error = %v, want ErrNotFound", err)
	}
	if _, err := d.FindForUser(context.Background(), "nobody@x.com"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("FindForUser() error = %v, want ErrNotFound", err)
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "a@x.com")

	res, err := d.Join(ctx, "AB12CD", "b@x.com", 12)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if res.AlreadyMember {
		t.Error("AlreadyMember = true for new member")
	}
	if !slices.Equal(res.Apartment.Members, []string{"a@x.com", "b@x.com"}) {
		t.Errorf("Members = %v", res.Apartment.Members)
	}

	again, err := d.Join(ctx, "ab12cd", "B@x.com", 12)
	if err != nil {
		t.Fatalf("rejoin error = %v", err)
	}
	if !again.AlreadyMember || len(again.Apartment.Members) != 2 {
		t.Errorf("rejoin = %+v, want no-op", again)
	}

	if _, err := d.Join(ctx, "NOPE00", "c@x.com", 12); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Join(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestJoin_Full(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "a@x.com")

	if _, err := d.Join(ctx, "AB12CD", "b@x.com", 2); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := d.Join(ctx, "AB12CD", "c@x.com", 2); !errors.Is(err, directory.ErrFull) {
		t.Errorf("Join(full) error = %v, want ErrFull", err)
	}
	if _, err := d.Join(ctx, "AB12CD", "b@x.com", 2); err != nil {
		t.Errorf("existing member Join(full) error = %v, want nil", err)
	}
}

func TestJoin_ConcurrentAtCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		d := newDirectory(t)
		mustCreate(t, d, "AB12CD", "owner@x.com")
		for i := 0; i < 10; i++ {
			if _, err := d.Join(ctx, "AB12CD", fmt.Sprintf("m%d@x.com", i), 12); err != nil {
				t.Fatalf("Join() error = %v", err)
			}
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = d.Join(ctx, "AB12CD", fmt.Sprintf("late%d@x.com", i), 12)
			}(i)
		}
		wg.Wait()

		var ok, full int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, directory.ErrFull):
				full++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 || full != 1 {
			t.Fatalf("round %d: %d successes and %d full, want 1 and 1", round, ok, full)
		}

		apt, _ := d.GetByCode(ctx, "AB12CD")
		if len(apt.Members) != 12 {
			t.Fatalf("members = %d, want 12", len(apt.Members))
		}
	}
}

func TestLeave_TransfersOwnershipAndDeletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "a@x.com")
	mustJoin(t, d, "AB12CD", "b@x.com")
	mustJoin(t, d, "AB12CD", "c@x.com")

	res, err := d.Leave(ctx, "AB12CD", "a@x.com")
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if res.Deleted || res.Owner != "b@x.com" || !slices.Equal(res.Members, []string{"b@x.com", "c@x.com"}) {
		t.Errorf("Leave(owner) = %+v", res)
	}

	res, err = d.Leave(ctx, "AB12CD", "c@x.com")
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if res.Owner != "b@x.com" {
		t.Errorf("non-owner leave changed owner to %s", res.Owner)
	}

	res, err = d.Leave(ctx, "AB12CD", "b@x.com")
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if !res.Deleted {
		t.Error("last leave should delete the apartment")
	}
	if _, err := d.GetByCode(ctx, "AB12CD"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("GetByCode() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLeave_NonMemberIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "a@x.com")

	res, err := d.Leave(ctx, "AB12CD", "stranger@x.com")
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if res.WasMember || res.Deleted || !slices.Equal(res.Members, []string{"a@x.com"}) {
		t.Errorf("Leave(non-member) = %+v", res)
	}

	if _, err := d.Leave(ctx, "NOPE00", "a@x.com"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Leave(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestOwnerIsAlwaysMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "u0@x.com")

	ops := []struct {
		join bool
		user string
	}{
		{true, "u1@x.com"}, {true, "u2@x.com"}, {false, "u0@x.com"},
		{true, "u3@x.com"}, {false, "u2@x.com"}, {false, "u1@x.com"},
		{true, "u0@x.com"}, {false, "u3@x.com"}, {false, "u0@x.com"},
	}

	for i, op := range ops {
		var err error
		if op.join {
			_, err = d.Join(ctx, "AB12CD", op.user, 12)
		} else {
			_, err = d.Leave(ctx, "AB12CD", op.user)
		}
		if err != nil {
			t.Fatalf("op %d: %v", i, err)
		}

		apt, err := d.GetByCode(ctx, "AB12CD")
		if errors.Is(err, directory.ErrNotFound) {
			continue
		}
		if err != nil {
			t.Fatalf("op %d: GetByCode() error = %v", i, err)
		}
		if !apt.HasMember(apt.Owner) {
			t.Fatalf("op %d: owner %s not in members %v", i, apt.Owner, apt.Members)
		}
	}
}

func TestDeleteByOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "a@x.com")
	mustJoin(t, d, "AB12CD", "b@x.com")

	if _, err := d.DeleteByOwner(ctx, "AB12CD", "b@x.com"); !errors.Is(err, directory.ErrPermissionDenied) {
		t.Fatalf("DeleteByOwner(non-owner) error = %v, want ErrPermissionDenied", err)
	}
	if _, err := d.GetByCode(ctx, "AB12CD"); err != nil {
		t.Fatalf("apartment should survive non-owner delete: %v", err)
	}

	deleted, err := d.DeleteByOwner(ctx, "AB12CD", "a@x.com")
	if err != nil {
		t.Fatalf("DeleteByOwner() error = %v", err)
	}
	if len(deleted.Members) != 2 {
		t.Errorf("deleted members = %v", deleted.Members)
	}
	if _, err := d.DeleteByOwner(ctx, "AB12CD", "a@x.com"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestMigrateUser_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "old@x.com")
	mustJoin(t, d, "AB12CD", "b@x.com")

	for i := 0; i < 2; i++ {
		if err := d.MigrateUser(ctx, "old@x.com", "new@x.com"); err != nil {
			t.Fatalf("MigrateUser() run %d error = %v", i, err)
		}
		apt, err := d.GetByCode(ctx, "AB12CD")
		if err != nil {
			t.Fatalf("GetByCode() error = %v", err)
		}
		if apt.Owner != "new@x.com" || !slices.Equal(apt.Members, []string{"new@x.com", "b@x.com"}) {
			t.Fatalf("run %d: apartment = %+v", i, apt)
		}
	}
}

func TestMigrateUser_DeduplicatesWhenBothPresent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectory(t)
	mustCreate(t, d, "AB12CD", "new@x.com")
	mustJoin(t, d, "AB12CD", "old@x.com")

	if err := d.MigrateUser(ctx, "old@x.com", "new@x.com"); err != nil {
		t.Fatalf("MigrateUser() error = %v", err)
	}
	apt, _ := d.GetByCode(ctx, "AB12CD")
	if !slices.Equal(apt.Members, []string{"new@x.com"}) {
		t.Errorf("Members = %v, want [new@x.com]", apt.Members)
	}
}

func TestFindForUser_ReturnsOldest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := directory.New(memstore.New().Apartments(), nil, directory.WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))
	mustCreate(t, d, "ZZZZZ1", "a@x.com")
	mustCreate(t, d, "AAAAA1", "b@x.com")
	mustJoin(t, d, "AAAAA1", "a@x.com")

	apt, err := d.FindForUser(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindForUser() error = %v", err)
	}
	if apt.Code != "ZZZZZ1" {
		t.Errorf("FindForUser() = %s, want oldest ZZZZZ1", apt.Code)
	}

	all, err := d.ListForUser(ctx, "a@x.com")
	if err != nil || len(all) != 2 {
		t.Errorf("ListForUser() = %d, %v", len(all), err)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *mapCache) GetMembership(_ context.Context, userID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.m[userID]
	return code, ok, nil
}

func (c *mapCache) SetMembership(_ context.Context, userID, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userID] = code
	return nil
}

func (c *mapCache) InvalidateMembership(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range userIDs {
		delete(c.m, u)
	}
	return nil
}

func TestFindForUser_StaleCacheEntryIsRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache := &mapCache{m: map[string]string{"a@x.com": "GONE00"}}
	d := directory.New(memstore.New().Apartments(), nil, directory.WithCache(cache))

	if _, err := d.FindForUser(ctx, "a@x.com"); !errors.Is(err, directory.ErrNotFound) {
		t.Fatalf("FindForUser() error = %v, want ErrNotFound", err)
	}
	if _, ok := cache.m["a@x.com"]; ok {
		t.Error("stale cache entry was not invalidated")
	}

	mustCreate(t, d, "AB12CD", "a@x.com")
	if _, err := d.FindForUser(ctx, "a@x.com"); err != nil {
		t.Fatalf("FindForUser() error = %v", err)
	}
	if cache.m["a@x.com"] != "AB12CD" {
		t.Errorf("cache = %v, want entry for AB12CD", cache.m)
	}
}

func mustCreate(t *testing.T, d *directory.Directory, code, owner string) *model.Apartment {
	t.Helper()
	apt, err := d.Create(context.Background(), code, owner)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", code, err)
	}
	return apt
}

func mustJoin(t *testing.T, d *directory.Directory, code, user string) {
	t.Helper()
	if _, err := d.Join(context.Background(), code, user, 12); err != nil {
		t.Fatalf("Join(%s, %s) error = %v", code, user, err)
	}
}
