package scheduler

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryScheduler is an in-memory TaskScheduler for tests and single-node
// setups.
type MemoryScheduler struct {
	mu    sync.RWMutex
	tasks []Task
}

// NewMemoryScheduler constructs an empty MemoryScheduler.
func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{}
}

func (s *MemoryScheduler) Schedule(_ context.Context, action, resourceID string, params map[string]any, at time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := Task{
		ID:          uuid.NewString(),
		Action:      action,
		ResourceID:  resourceID,
		Params:      params,
		Status:      StatusScheduled,
		ScheduledAt: at,
	}
	s.tasks = append(s.tasks, task)
	return task.ID, nil
}

func (s *MemoryScheduler) Tasks(_ context.Context, actions []string, resourceID string, statuses []Status) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for _, t := range s.tasks {
		if t.ResourceID != resourceID {
			continue
		}
		if len(actions) > 0 && !slices.Contains(actions, t.Action) {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// SetStatus transitions a task, mimicking the external scheduler's own
// state changes in tests.
func (s *MemoryScheduler) SetStatus(taskID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks[i].Status = status
		}
	}
}
