package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// NotificationStore persists per-member notification queues.
type NotificationStore interface {
	AddNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, code, userID string) ([]*model.Notification, error)
	MarkAllRead(ctx context.Context, code, userID string) (int64, error)
	RemoveMember(ctx context.Context, code, userID string) error
}

// NotificationService manages member notification queues.
type NotificationService struct {
	store NotificationStore
	now   func() time.Time
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store, now: nowUTC}
}

// List returns userID's queue, newest first.
func (s *NotificationService) List(ctx context.Context, code, userID string) ([]*model.Notification, error) {
	list, err := s.store.ListNotifications(ctx, code, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkAllRead flags every queued notification as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, code, userID string) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, code, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return n, nil
}

// Add queues an unread notification for userID.
func (s *NotificationService) Add(ctx context.Context, code, userID, kind, message, link string) (*model.Notification, error) {
	n := &model.Notification{
		ID:            generateULID(),
		ApartmentCode: code,
		UserID:        userID,
		Type:          kind,
		Message:       message,
		Link:          link,
		CreatedAt:     s.now(),
	}
	if err := s.store.AddNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("add notification: %w", err)
	}
	return n, nil
}

// Clear drops userID's whole queue.
func (s *NotificationService) Clear(ctx context.Context, code, userID string) error {
	if err := s.store.RemoveMember(ctx, code, userID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
