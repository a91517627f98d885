package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	taskKeyPrefix  = "timgate:task:"
	indexKeyPrefix = "timgate:tasks:resource:"
)

// RedisScheduler is a Redis-backed TaskScheduler for deployments where the
// scheduler state must be shared between processes. Each task is a JSON
// document keyed by id, with a per-resource index set.
type RedisScheduler struct {
	client *redis.Client
}

// NewRedisScheduler constructs a Redis-backed TaskScheduler.
func NewRedisScheduler(client *redis.Client) *RedisScheduler {
	return &RedisScheduler{client: client}
}

func (s *RedisScheduler) Schedule(ctx context.Context, action, resourceID string, params map[string]any, at time.Time) (string, error) {
	task := Task{
		ID:          uuid.NewString(),
		Action:      action,
		ResourceID:  resourceID,
		Params:      params,
		Status:      StatusScheduled,
		ScheduledAt: at,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, body, 0)
	pipe.SAdd(ctx, indexKeyPrefix+resourceID, task.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("schedule task: %w", err)
	}
	return task.ID, nil
}

func (s *RedisScheduler) Tasks(ctx context.Context, actions []string, resourceID string, statuses []Status) ([]Task, error) {
	ids, err := s.client.SMembers(ctx, indexKeyPrefix+resourceID).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks for %s: %w", resourceID, err)
	}

	var out []Task
	for _, id := range ids {
		body, err := s.client.Get(ctx, taskKeyPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load task %s: %w", id, err)
		}
		var task Task
		if err := json.Unmarshal([]byte(body), &task); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", id, err)
		}
		if !matches(task, actions, statuses) {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func matches(t Task, actions []string, statuses []Status) bool {
	if len(actions) > 0 {
		found := false
		for _, a := range actions {
			if t.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(statuses) > 0 {
		found := false
		for _, st := range statuses {
			if t.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
