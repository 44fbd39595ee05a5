package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/sinkapp/sink/internal/model"
)

// EventStore holds calendar events per apartment.
type EventStore struct {
	mu     sync.RWMutex
	byCode map[string][]model.CalendarEvent
}

// CreateEvent stores a calendar event.
func (s *EventStore) CreateEvent(ctx context.Context, event *model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCode[event.ApartmentCode] = append(s.byCode[event.ApartmentCode], *event)
	return nil
}

// ListEvents returns the apartment's events ordered by start time.
func (s *EventStore) ListEvents(ctx context.Context, code string) ([]*model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byCode[code]
	out := make([]*model.CalendarEvent, 0, len(events))
	for i := range events {
		e := events[i]
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

// DeleteEvent removes one event.
func (s *EventStore) DeleteEvent(ctx context.Context, code, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byCode[code]
	idx := slices.IndexFunc(events, func(e model.CalendarEvent) bool { return e.ID == id })
	if idx < 0 {
		return model.ErrRecordNotFound
	}
	s.byCode[code] = slices.Delete(events, idx, idx+1)
	return nil
}

// Name identifies the store in cleanup reports.
func (s *EventStore) Name() string { return "events" }

// PurgeApartment deletes every event of the apartment.
func (s *EventStore) PurgeApartment(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byCode, code)
	return nil
}

// ListApartmentCodes returns the codes that have at least one event.
func (s *EventStore) ListApartmentCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return nonEmptyCodes(s.byCode), nil
}

// MigrateUser rewrites the creator of events.
func (s *EventStore) MigrateUser(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, events := range s.byCode {
		for i := range events {
			if events[i].CreatedBy == oldID {
				events[i].CreatedBy = newID
			}
		}
	}
	return nil
}
