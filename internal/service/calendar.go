package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// EventStore persists calendar events.
type EventStore interface {
	CreateEvent(ctx context.Context, event *model.CalendarEvent) error
	ListEvents(ctx context.Context, code string) ([]*model.CalendarEvent, error)
	DeleteEvent(ctx context.Context, code, id string) error
}

// CalendarService manages the shared calendar.
type CalendarService struct {
	events EventStore
	logger *slog.Logger
	now    func() time.Time
}

// NewCalendarService creates a CalendarService.
func NewCalendarService(events EventStore, logger *slog.Logger) *CalendarService {
	return &CalendarService{
		events: events,
		logger: logger.With("component", "calendar"),
		now:    nowUTC,
	}
}

// CreateEventInput defines input for adding an event.
type CreateEventInput struct {
	Title    string
	StartsAt time.Time
	EndsAt   *time.Time
	Location string
	Details  string
}

// CreateEvent adds an event to the apartment calendar.
func (s *CalendarService) CreateEvent(ctx context.Context, code, actor string, input CreateEventInput) (*model.CalendarEvent, error) {
	title := clean(input.Title)
	switch {
	case title == "":
		return nil, ErrTitleRequired
	case tooLong(title, maxTitleLength):
		return nil, ErrTitleTooLong
	case tooLong(input.Details, maxDetailsLength) || tooLong(input.Location, maxTitleLength):
		return nil, ErrFieldTooLong
	case input.StartsAt.IsZero() || input.StartsAt.Before(s.now()):
		return nil, ErrStartsInPast
	case input.EndsAt != nil && input.EndsAt.Before(input.StartsAt):
		return nil, ErrEndsBeforeStart
	}

	event := &model.CalendarEvent{
		ID:            generateULID(),
		ApartmentCode: code,
		Title:         title,
		StartsAt:      input.StartsAt.UTC(),
		Location:      clean(input.Location),
		Details:       clean(input.Details),
		CreatedBy:     actor,
		CreatedAt:     s.now(),
	}
	if input.EndsAt != nil {
		end := input.EndsAt.UTC()
		event.EndsAt = &end
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event_created", "code", code, "event_id", event.ID)
	return event, nil
}

// ListEvents returns the apartment's events, soonest first.
func (s *CalendarService) ListEvents(ctx context.Context, code string) ([]*model.CalendarEvent, error) {
	events, err := s.events.ListEvents(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// DeleteEvent removes an event.
func (s *CalendarService) DeleteEvent(ctx context.Context, code, id string) error {
	if err := s.events.DeleteEvent(ctx, code, id); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.Info("event_deleted", "code", code, "event_id", id)
	return nil
}
