// Package scheduler is the client surface of the external task scheduler.
// The core only creates tasks and lists existing ones; task state
// transitions happen inside the scheduler itself.
package scheduler

import (
	"context"
	"time"
)

// Status is the lifecycle state of a scheduled task.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is a scheduled unit of work against a resource.
type Task struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	ResourceID  string         `json:"resource_id"`
	Params      map[string]any `json:"params,omitempty"`
	Status      Status         `json:"status"`
	ScheduledAt time.Time      `json:"scheduled_at"`
}

// TaskScheduler schedules tasks and answers queries about existing ones.
type TaskScheduler interface {
	// Schedule creates a task and returns its id.
	Schedule(ctx context.Context, action, resourceID string, params map[string]any, at time.Time) (string, error)

	// Tasks lists tasks matching any of the actions and statuses for the
	// resource. Empty statuses means all statuses.
	Tasks(ctx context.Context, actions []string, resourceID string, statuses []Status) ([]Task, error)
}
