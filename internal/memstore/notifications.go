package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/sinkapp/sink/internal/model"
)

// NotificationStore holds per-member notification queues for each apartment.
type NotificationStore struct {
	mu     sync.RWMutex
	byCode map[string][]model.Notification
}

// AddNotification appends a notification.
func (s *NotificationStore) AddNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCode[n.ApartmentCode] = append(s.byCode[n.ApartmentCode], *n)
	return nil
}

// ListNotifications returns userID's queue, newest first.
func (s *NotificationStore) ListNotifications(ctx context.Context, code, userID string) ([]*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byCode[code]
	var out []*model.Notification
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID == userID {
			n := all[i]
			out = append(out, &n)
		}
	}
	return out, nil
}

// MarkAllRead marks userID's queue as read and returns how many changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, code, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	all := s.byCode[code]
	for i := range all {
		if all[i].UserID == userID && !all[i].Read {
			all[i].Read = true
			changed++
		}
	}
	return changed, nil
}

// RemoveMember clears userID's queue in one apartment.
func (s *NotificationStore) RemoveMember(ctx context.Context, code, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCode[code] = slices.DeleteFunc(s.byCode[code], func(n model.Notification) bool {
		return n.UserID == userID
	})
	return nil
}

// Name identifies the store in cleanup reports.
func (s *NotificationStore) Name() string { return "notifications" }

// PurgeApartment deletes every queue of the apartment.
func (s *NotificationStore) PurgeApartment(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byCode, code)
	return nil
}

// ListApartmentCodes returns the codes that have at least one notification.
func (s *NotificationStore) ListApartmentCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return nonEmptyCodes(s.byCode), nil
}

// MigrateUser moves oldID's notifications into newID's queue.
func (s *NotificationStore) MigrateUser(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, all := range s.byCode {
		for i := range all {
			if all[i].UserID == oldID {
				all[i].UserID = newID
			}
		}
	}
	return nil
}
