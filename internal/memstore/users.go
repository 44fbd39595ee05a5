package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// UserStore holds accounts keyed by canonical email.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]model.User
}

// CreateUser stores a new account.
func (s *UserStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return model.ErrRecordExists
	}
	s.byEmail[user.Email] = *user
	return nil
}

// GetUserByEmail returns the account for email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	return &u, nil
}

// UpdateUserEmail changes an account's email.
func (s *UserStore) UpdateUserEmail(ctx context.Context, oldEmail, newEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[oldEmail]
	if !ok {
		return model.ErrRecordNotFound
	}
	if _, taken := s.byEmail[newEmail]; taken {
		return model.ErrRecordExists
	}
	delete(s.byEmail, oldEmail)
	u.Email = newEmail
	u.UpdatedAt = time.Now().UTC()
	s.byEmail[newEmail] = u
	return nil
}

// DeleteUser removes an account.
func (s *UserStore) DeleteUser(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; !ok {
		return model.ErrRecordNotFound
	}
	delete(s.byEmail, email)
	return nil
}
