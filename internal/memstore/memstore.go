// Package memstore provides in-process implementations of every record store.
// It backs STORE_DRIVER=memory and the unit tests of the packages above it.
package memstore

import (
	"sort"

	"github.com/sinkapp/sink/internal/model"
)

// Store holds all collections in memory. It is safe for concurrent use.
type Store struct {
	apartments    *ApartmentStore
	events        *EventStore
	messages      *MessageStore
	tasks         *TaskStore
	notifications *NotificationStore
	profiles      *ProfileStore
	users         *UserStore
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		apartments:    &ApartmentStore{byCode: make(map[string]model.Apartment)},
		events:        &EventStore{byCode: make(map[string][]model.CalendarEvent)},
		messages:      &MessageStore{byCode: make(map[string][]model.ChatMessage)},
		tasks:         &TaskStore{byCode: make(map[string][]model.Task)},
		notifications: &NotificationStore{byCode: make(map[string][]model.Notification)},
		profiles:      &ProfileStore{byCode: make(map[string]map[string]model.Profile)},
		users:         &UserStore{byEmail: make(map[string]model.User)},
	}
}

// Apartments returns the apartment directory store.
func (s *Store) Apartments() *ApartmentStore { return s.apartments }

// Events returns the calendar event store.
func (s *Store) Events() *EventStore { return s.events }

// Messages returns the chat message store.
func (s *Store) Messages() *MessageStore { return s.messages }

// Tasks returns the task store.
func (s *Store) Tasks() *TaskStore { return s.tasks }

// Notifications returns the notification store.
func (s *Store) Notifications() *NotificationStore { return s.notifications }

// Profiles returns the profile store.
func (s *Store) Profiles() *ProfileStore { return s.profiles }

// Users returns the account store.
func (s *Store) Users() *UserStore { return s.users }

func nonEmptyCodes[E any](byCode map[string][]E) []string {
	codes := make([]string, 0, len(byCode))
	for code, records := range byCode {
		if len(records) > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}
