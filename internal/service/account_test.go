package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/model"
)

type accountEnv struct {
	store    *memstore.Store
	provider *auth.Provider
	dir      *directory.Directory
	manager  *membership.Manager
	accounts *AccountService
}

func newAccountEnv(t *testing.T) *accountEnv {
	t.Helper()
	logger := discardLogger()
	store := memstore.New()

	provider := auth.NewProvider(store.Users(), memstore.NewSessionStore(), logger, 0)
	dir := directory.New(store.Apartments(), logger)
	manager := membership.NewManager(dir, store.Profiles(), []membership.ScopedStore{
		store.Events(), store.Messages(), store.Tasks(), store.Notifications(), store.Profiles(),
	}, logger)
	resolver := identity.NewResolver(logger, nil,
		dir, store.Profiles(), store.Messages(), store.Tasks(), store.Events(), store.Notifications(),
	)

	return &accountEnv{
		store:    store,
		provider: provider,
		dir:      dir,
		manager:  manager,
		accounts: NewAccountService(provider, manager, resolver, dir, logger),
	}
}

func (e *accountEnv) signUp(t *testing.T, email string) *model.AuthContext {
	t.Helper()
	grant, err := e.accounts.SignUp(context.Background(), email, "secret-pass", "")
	if err != nil {
		t.Fatalf("SignUp(%s) error = %v", email, err)
	}
	principal, err := e.provider.CurrentPrincipal(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("CurrentPrincipal() error = %v", err)
	}
	return principal
}

func TestAccountMeReportsApartment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAccountEnv(t)
	alice := env.signUp(t, "alice@x.com")

	me, err := env.accounts.Me(ctx, alice)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.UserID != "alice@x.com" || me.ApartmentCode != "" {
		t.Errorf("Me() = %+v before joining", me)
	}

	apt, err := env.manager.CreateApartment(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("CreateApartment() error = %v", err)
	}
	me, err = env.accounts.Me(ctx, alice)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.ApartmentCode != apt.Code {
		t.Errorf("ApartmentCode = %q, want %q", me.ApartmentCode, apt.Code)
	}
}

func TestAccountChangeEmailMigratesReferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAccountEnv(t)
	alice := env.signUp(t, "alice@x.com")
	bob := env.signUp(t, "bob@x.com")

	apt, err := env.manager.CreateApartment(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("CreateApartment() error = %v", err)
	}
	if _, err := env.manager.JoinApartment(ctx, apt.Code, bob.UserID); err != nil {
		t.Fatalf("JoinApartment() error = %v", err)
	}
	apt, _ = env.dir.GetByCode(ctx, apt.Code)

	tasks := NewTaskService(env.store.Tasks(), NewNotificationService(env.store.Notifications()), discardLogger())
	if _, err := tasks.CreateTask(ctx, apt, bob.UserID, CreateTaskInput{
		Title: "Dishes", Room: model.RoomKitchen, DueAt: testNow, Assignee: alice.UserID,
	}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	change, err := env.accounts.ChangeEmail(ctx, alice, "Alicia@X.com")
	if err != nil {
		t.Fatalf("ChangeEmail() error = %v", err)
	}
	if !change.MigrationComplete() {
		t.Fatalf("migration incomplete: %+v", change.Migration)
	}
	if change.Grant.Principal.UserID != "alicia@x.com" {
		t.Errorf("new principal = %q", change.Grant.Principal.UserID)
	}

	got, err := env.dir.GetByCode(ctx, apt.Code)
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if got.Owner != "alicia@x.com" || !got.HasMember("alicia@x.com") || got.HasMember("alice@x.com") {
		t.Errorf("apartment after migration = %+v", got)
	}

	list, err := env.store.Tasks().ListTasks(ctx, apt.Code)
	if err != nil || len(list) != 1 || list[0].Assignee != "alicia@x.com" {
		t.Errorf("task assignee not migrated: %+v (err %v)", list, err)
	}
	queue, err := env.store.Notifications().ListNotifications(ctx, apt.Code, "alicia@x.com")
	if err != nil || len(queue) != 1 {
		t.Errorf("notification queue not migrated: %d (err %v)", len(queue), err)
	}

	if _, err := env.store.Users().GetUserByEmail(ctx, "alice@x.com"); !errors.Is(err, model.ErrRecordNotFound) {
		t.Errorf("old email lookup error = %v, want ErrRecordNotFound", err)
	}
}

func TestAccountChangeEmailTakenSkipsMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAccountEnv(t)
	alice := env.signUp(t, "alice@x.com")
	env.signUp(t, "bob@x.com")

	apt, err := env.manager.CreateApartment(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("CreateApartment() error = %v", err)
	}

	if _, err := env.accounts.ChangeEmail(ctx, alice, "bob@x.com"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("ChangeEmail() error = %v, want ErrEmailTaken", err)
	}
	got, _ := env.dir.GetByCode(ctx, apt.Code)
	if got.Owner != "alice@x.com" {
		t.Errorf("owner changed to %q after failed email change", got.Owner)
	}
}

func TestAccountDeleteRemovesEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newAccountEnv(t)
	alice := env.signUp(t, "alice@x.com")
	bob := env.signUp(t, "bob@x.com")

	apt, err := env.manager.CreateApartment(ctx, alice.UserID)
	if err != nil {
		t.Fatalf("CreateApartment() error = %v", err)
	}
	if _, err := env.manager.JoinApartment(ctx, apt.Code, bob.UserID); err != nil {
		t.Fatalf("JoinApartment() error = %v", err)
	}

	removal, err := env.accounts.DeleteAccount(ctx, alice)
	if err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if !removal.OK() || len(removal.Left) != 1 || removal.Left[0] != apt.Code {
		t.Errorf("removal = %+v", removal)
	}

	got, err := env.dir.GetByCode(ctx, apt.Code)
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if got.Owner != "bob@x.com" || got.HasMember("alice@x.com") {
		t.Errorf("apartment after delete = %+v", got)
	}
	if _, err := env.store.Profiles().GetProfile(ctx, apt.Code, "alice@x.com"); !errors.Is(err, model.ErrRecordNotFound) {
		t.Errorf("profile lookup error = %v, want ErrRecordNotFound", err)
	}
	if _, err := env.accounts.SignIn(ctx, "alice@x.com", "secret-pass"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("SignIn() after delete error = %v, want ErrInvalidCredentials", err)
	}
}
