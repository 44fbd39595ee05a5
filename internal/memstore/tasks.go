package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/sinkapp/sink/internal/model"
)

// TaskStore holds chores per apartment.
type TaskStore struct {
	mu     sync.RWMutex
	byCode map[string][]model.Task
}

// CreateTask stores a task.
func (s *TaskStore) CreateTask(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCode[task.ApartmentCode] = append(s.byCode[task.ApartmentCode], *task)
	return nil
}

// ListTasks returns the apartment's tasks ordered by due time.
func (s *TaskStore) ListTasks(ctx context.Context, code string) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := s.byCode[code]
	out := make([]*model.Task, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		out = append(out, &t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out, nil
}

// GetTask returns one task.
func (s *TaskStore) GetTask(ctx context.Context, code, id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.byCode[code] {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, model.ErrRecordNotFound
}

// DeleteTask removes one task.
func (s *TaskStore) DeleteTask(ctx context.Context, code, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.byCode[code]
	idx := slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
	if idx < 0 {
		return model.ErrRecordNotFound
	}
	s.byCode[code] = slices.Delete(tasks, idx, idx+1)
	return nil
}

// Name identifies the store in cleanup reports.
func (s *TaskStore) Name() string { return "tasks" }

// PurgeApartment deletes every task of the apartment.
func (s *TaskStore) PurgeApartment(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byCode, code)
	return nil
}

// ListApartmentCodes returns the codes that have at least one task.
func (s *TaskStore) ListApartmentCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return nonEmptyCodes(s.byCode), nil
}

// MigrateUser rewrites task assignees and creators.
func (s *TaskStore) MigrateUser(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tasks := range s.byCode {
		for i := range tasks {
			if tasks[i].Assignee == oldID {
				tasks[i].Assignee = newID
			}
			if tasks[i].CreatedBy == oldID {
				tasks[i].CreatedBy = newID
			}
		}
	}
	return nil
}
