package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/model"
)

// Authenticator is the auth provider contract used for accounts.
type Authenticator interface {
	SignUp(ctx context.Context, email, password, displayName string) (*auth.Grant, error)
	SignIn(ctx context.Context, email, password string) (*auth.Grant, error)
	SignOut(ctx context.Context, tokenHash string) error
	ChangeEmail(ctx context.Context, oldEmail, newEmail string) (*auth.Grant, error)
	DeleteUser(ctx context.Context, email string) error
}

// AccountRemover removes a user from every apartment.
type AccountRemover interface {
	DeleteAccount(ctx context.Context, userID string) (*membership.AccountRemoval, error)
}

// IdentityMigrator rewrites stored references from one user id to another.
type IdentityMigrator interface {
	Migrate(ctx context.Context, oldID, newID string) (*identity.Report, error)
}

// ApartmentFinder looks up the caller's apartment.
type ApartmentFinder interface {
	FindForUser(ctx context.Context, userID string) (*model.Apartment, error)
}

// AccountService composes the auth provider with the membership core.
type AccountService struct {
	auth      Authenticator
	remover   AccountRemover
	migrator  IdentityMigrator
	apartment ApartmentFinder
	logger    *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(authn Authenticator, remover AccountRemover, migrator IdentityMigrator, apartments ApartmentFinder, logger *slog.Logger) *AccountService {
	return &AccountService{
		auth:      authn,
		remover:   remover,
		migrator:  migrator,
		apartment: apartments,
		logger:    logger.With("component", "account"),
	}
}

// SignUp creates an account and returns its first session.
func (s *AccountService) SignUp(ctx context.Context, email, password, displayName string) (*auth.Grant, error) {
	return s.auth.SignUp(ctx, email, password, displayName)
}

// SignIn returns a new session for valid credentials.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*auth.Grant, error) {
	return s.auth.SignIn(ctx, email, password)
}

// SignOut revokes the caller's session.
func (s *AccountService) SignOut(ctx context.Context, principal *model.AuthContext) error {
	return s.auth.SignOut(ctx, principal.TokenHash)
}

// Me describes the signed-in user.
type Me struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name,omitempty"`
	ApartmentCode string `json:"apartment_code,omitempty"`
}

// Me returns the caller and the code of its apartment, if any.
func (s *AccountService) Me(ctx context.Context, principal *model.AuthContext) (*Me, error) {
	me := &Me{UserID: principal.UserID, DisplayName: principal.DisplayName}

	apt, err := s.apartment.FindForUser(ctx, principal.UserID)
	switch {
	case errors.Is(err, directory.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("find apartment: %w", err)
	default:
		me.ApartmentCode = apt.Code
	}
	return me, nil
}

// EmailChange is returned by ChangeEmail.
type EmailChange struct {
	Grant *auth.Grant
	// Migration is nil when the migration could not start.
	Migration *identity.Report
}

// MigrationComplete reports whether every stored reference moved.
func (c *EmailChange) MigrationComplete() bool {
	return c.Migration != nil && c.Migration.OK()
}

// ChangeEmail renames the account, then migrates every stored reference
// to the new identity. A partial migration is logged and reported but does
// not fail the change; running the migration again is safe.
func (s *AccountService) ChangeEmail(ctx context.Context, principal *model.AuthContext, newEmail string) (*EmailChange, error) {
	grant, err := s.auth.ChangeEmail(ctx, principal.UserID, newEmail)
	if err != nil {
		return nil, err
	}

	change := &EmailChange{Grant: grant}
	report, err := s.migrator.Migrate(ctx, principal.UserID, grant.Principal.UserID)
	change.Migration = report
	if err != nil {
		s.logger.Error("identity_migration_incomplete",
			"old_id", principal.UserID,
			"new_id", grant.Principal.UserID,
			"error", err,
		)
	}
	return change, nil
}

// DeleteAccount removes the caller from every apartment, then deletes the
// credentials and every session. Membership removal is not rolled back
// when a later step fails.
func (s *AccountService) DeleteAccount(ctx context.Context, principal *model.AuthContext) (*membership.AccountRemoval, error) {
	removal, err := s.remover.DeleteAccount(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("leave apartments: %w", err)
	}

	if err := s.auth.DeleteUser(ctx, principal.UserID); err != nil {
		return removal, fmt.Errorf("delete credentials: %w", err)
	}

	s.logger.Info("account_deleted",
		"user_id", principal.UserID,
		"left", len(removal.Left),
		"deleted", len(removal.Deleted),
		"failures", len(removal.Failures),
	)
	return removal, nil
}
