package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// SessionStore keeps sign-in sessions in process. Expired entries are dropped on read.
type SessionStore struct {
	mu     sync.Mutex
	byHash map[string]model.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{byHash: make(map[string]model.Session)}
}

// SaveSession stores s under its token hash.
func (s *SessionStore) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[session.TokenHash] = *session
	return nil
}

// GetSession returns the session for tokenHash or model.ErrRecordNotFound.
func (s *SessionStore) GetSession(ctx context.Context, tokenHash string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byHash[tokenHash]
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	if session.IsExpired(time.Now()) {
		delete(s.byHash, tokenHash)
		return nil, model.ErrRecordNotFound
	}
	return &session, nil
}

// DeleteSession removes one session.
func (s *SessionStore) DeleteSession(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, tokenHash)
	return nil
}

// DeleteUserSessions removes every session belonging to userID.
func (s *SessionStore) DeleteUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, session := range s.byHash {
		if session.UserID == userID {
			delete(s.byHash, hash)
		}
	}
	return nil
}
