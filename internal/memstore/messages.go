package memstore

import (
	"context"
	"sync"

	"github.com/sinkapp/sink/internal/model"
)

// MessageStore holds chat messages per apartment in insertion order.
type MessageStore struct {
	mu     sync.RWMutex
	byCode map[string][]model.ChatMessage
}

// CreateMessage appends a message.
func (s *MessageStore) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCode[msg.ApartmentCode] = append(s.byCode[msg.ApartmentCode], *msg)
	return nil
}

// ListMessages returns the most recent limit messages, oldest first.
func (s *MessageStore) ListMessages(ctx context.Context, code string, limit int) ([]*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.byCode[code]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*model.ChatMessage, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out = append(out, &m)
	}
	return out, nil
}

// Name identifies the store in cleanup reports.
func (s *MessageStore) Name() string { return "messages" }

// PurgeApartment deletes the apartment's chat history.
func (s *MessageStore) PurgeApartment(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byCode, code)
	return nil
}

// ListApartmentCodes returns the codes that have at least one message.
func (s *MessageStore) ListApartmentCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return nonEmptyCodes(s.byCode), nil
}

// MigrateUser rewrites message senders.
func (s *MessageStore) MigrateUser(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msgs := range s.byCode {
		for i := range msgs {
			if msgs[i].Sender == oldID {
				msgs[i].Sender = newID
			}
		}
	}
	return nil
}
