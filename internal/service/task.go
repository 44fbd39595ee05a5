package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/model"
)

// TaskStore persists chores.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	ListTasks(ctx context.Context, code string) ([]*model.Task, error)
	GetTask(ctx context.Context, code, id string) (*model.Task, error)
	DeleteTask(ctx context.Context, code, id string) error
}

// Notifier queues a notification for one member.
type Notifier interface {
	Add(ctx context.Context, code, userID, kind, message, link string) (*model.Notification, error)
}

// TaskService manages room chores.
type TaskService struct {
	tasks    TaskStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewTaskService creates a TaskService.
func NewTaskService(tasks TaskStore, notifier Notifier, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger.With("component", "tasks"),
		now:      nowUTC,
	}
}

// CreateTaskInput defines input for assigning a chore.
type CreateTaskInput struct {
	Title    string
	Room     string
	DueAt    time.Time
	Assignee string
	ImageKey string
}

// CreateTask stores a chore and notifies whoever it was assigned to.
func (s *TaskService) CreateTask(ctx context.Context, apt *model.Apartment, actor string, input CreateTaskInput) (*model.Task, error) {
	title := clean(input.Title)
	room := clean(input.Room)
	switch {
	case title == "":
		return nil, ErrTitleRequired
	case tooLong(title, maxTitleLength):
		return nil, ErrTitleTooLong
	case room == "":
		return nil, ErrRoomRequired
	case tooLong(room, maxFieldLength):
		return nil, ErrFieldTooLong
	case input.DueAt.IsZero():
		return nil, ErrDueRequired
	}

	assignee := clean(input.Assignee)
	if assignee != model.AssigneeEveryone {
		assignee = identity.Normalize(assignee)
		if !apt.HasMember(assignee) {
			return nil, ErrInvalidAssignee
		}
	}
	if err := checkAttachmentKey(input.ImageKey, apt.Code); err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:            generateULID(),
		ApartmentCode: apt.Code,
		Title:         title,
		Room:          room,
		DueAt:         input.DueAt.UTC(),
		Assignee:      assignee,
		CreatedBy:     actor,
		ImageKey:      input.ImageKey,
		CreatedAt:     s.now(),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("task_created", "code", apt.Code, "task_id", task.ID, "assignee", assignee)
	s.notifyAssigned(ctx, apt, actor, task)
	return task, nil
}

// notifyAssigned tells the assignee, or every other member for a shared
// chore. The creator is never notified. Failures are logged only.
func (s *TaskService) notifyAssigned(ctx context.Context, apt *model.Apartment, actor string, task *model.Task) {
	if s.notifier == nil {
		return
	}

	link := "tasks?taskId=" + task.ID
	var recipients []string
	var message string
	if task.IsForEveryone() {
		message = fmt.Sprintf("%s assigned a task to everyone: %s", actor, task.Title)
		for _, m := range apt.Members {
			if m != actor {
				recipients = append(recipients, m)
			}
		}
	} else if task.Assignee != actor {
		message = fmt.Sprintf("%s assigned you a task: %s", actor, task.Title)
		recipients = []string{task.Assignee}
	}

	for _, userID := range recipients {
		if _, err := s.notifier.Add(ctx, apt.Code, userID, model.NotificationTypeTask, message, link); err != nil {
			s.logger.Warn("task_notification_failed", "code", apt.Code, "task_id", task.ID, "user_id", userID, "error", err)
		}
	}
}

// ListTasks returns the apartment's chores ordered by due time.
func (s *TaskService) ListTasks(ctx context.Context, code string) ([]*model.Task, error) {
	tasks, err := s.tasks.ListTasks(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTask marks a chore done, which removes it.
func (s *TaskService) CompleteTask(ctx context.Context, code, id, actor string) error {
	if err := s.tasks.DeleteTask(ctx, code, id); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("complete task: %w", err)
	}
	s.logger.Info("task_completed", "code", code, "task_id", id, "user_id", actor)
	return nil
}
