package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/model"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// DefaultSessionTTL is used when the provider is built with a zero TTL.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password is too short")
	ErrUnauthenticated    = errors.New("not signed in")
)

// UserStore persists accounts keyed by canonical email.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserEmail(ctx context.Context, oldEmail, newEmail string) error
	DeleteUser(ctx context.Context, email string) error
}

// SessionStore persists sessions by token hash.
// GetSession returns model.ErrRecordNotFound for unknown or expired sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, tokenHash string) (*model.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

// Grant is a newly issued session. Token is shown to the client once.
type Grant struct {
	Token     string
	ExpiresAt time.Time
	Principal *model.Principal
}

// Provider signs users up and in, and resolves bearer tokens to principals.
type Provider struct {
	users    UserStore
	sessions SessionStore
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewProvider creates a Provider.
func NewProvider(users UserStore, sessions SessionStore, logger *slog.Logger, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Provider{
		users:    users,
		sessions: sessions,
		logger:   logger.With("component", "auth_provider"),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (*Grant, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := p.now()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrRecordExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	p.logger.Info("user_signed_up", "user_id", user.ID)
	return p.issue(ctx, user)
}

// SignIn verifies credentials and issues a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Grant, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := p.users.GetUserByEmail(ctx, email)
	if errors.Is(err, model.ErrRecordNotFound) {
		// Keep timing close to the found-user path.
		_, _ = VerifyPassword(password, dummyHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return p.issue(ctx, user)
}

// CurrentPrincipal resolves a bearer token.
func (p *Provider) CurrentPrincipal(ctx context.Context, token string) (*model.AuthContext, error) {
	if !ValidateTokenFormat(token) {
		return nil, ErrUnauthenticated
	}

	hash := HashToken(token)
	s, err := p.sessions.GetSession(ctx, hash)
	if errors.Is(err, model.ErrRecordNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.IsExpired(p.now()) {
		return nil, ErrUnauthenticated
	}

	return &model.AuthContext{
		TokenHash:   hash,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
	}, nil
}

// SignOut revokes the session behind tokenHash.
func (p *Provider) SignOut(ctx context.Context, tokenHash string) error {
	if err := p.sessions.DeleteSession(ctx, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ChangeEmail moves the account to newEmail, revokes every session of the
// old identity and signs the user in under the new one.
// Stored references are migrated separately by the identity resolver.
func (p *Provider) ChangeEmail(ctx context.Context, oldEmail, newEmail string) (*Grant, error) {
	oldEmail = identity.Normalize(oldEmail)
	newEmail, err := normalizeEmail(newEmail)
	if err != nil {
		return nil, err
	}
	if oldEmail == newEmail {
		return nil, fmt.Errorf("%w: email unchanged", ErrInvalidEmail)
	}

	if err := p.users.UpdateUserEmail(ctx, oldEmail, newEmail); err != nil {
		switch {
		case errors.Is(err, model.ErrRecordExists):
			return nil, ErrEmailTaken
		case errors.Is(err, model.ErrRecordNotFound):
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("update email: %w", err)
	}

	if err := p.sessions.DeleteUserSessions(ctx, oldEmail); err != nil {
		p.logger.Warn("revoke_sessions_failed", "error", err)
	}

	user, err := p.users.GetUserByEmail(ctx, newEmail)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	p.logger.Info("user_email_changed", "user_id", user.ID)
	return p.issue(ctx, user)
}

// DeleteUser removes the account and all of its sessions.
func (p *Provider) DeleteUser(ctx context.Context, email string) error {
	email = identity.Normalize(email)

	if err := p.users.DeleteUser(ctx, email); err != nil && !errors.Is(err, model.ErrRecordNotFound) {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := p.sessions.DeleteUserSessions(ctx, email); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (p *Provider) issue(ctx context.Context, user *model.User) (*Grant, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	principal := user.Principal()
	now := p.now()
	session := &model.Session{
		TokenHash:   hash,
		UserID:      principal.UserID,
		DisplayName: principal.DisplayName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(p.ttl),
	}
	if err := p.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &Grant{Token: token, ExpiresAt: session.ExpiresAt, Principal: principal}, nil
}

func normalizeEmail(email string) (string, error) {
	email = identity.Normalize(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = HashPassword("sink-dummy-password")
	})
	return dummy
}
