package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySchedulerFilters(t *testing.T) {
	s := NewMemoryScheduler()
	ctx := context.Background()
	now := time.Now()

	purgeID, err := s.Schedule(ctx, "shutdown_and_purge_room", "!room:a.example", nil, now)
	require.NoError(t, err)
	_, err = s.Schedule(ctx, "other_action", "!room:a.example", nil, now)
	require.NoError(t, err)
	_, err = s.Schedule(ctx, "shutdown_and_purge_room", "!other:a.example", nil, now)
	require.NoError(t, err)

	tasks, err := s.Tasks(ctx, []string{"shutdown_and_purge_room"}, "!room:a.example", []Status{StatusScheduled, StatusActive})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, purgeID, tasks[0].ID)
	assert.Equal(t, StatusScheduled, tasks[0].Status)

	// Completed tasks fall out of the pending filter.
	s.SetStatus(purgeID, StatusCompleted)
	tasks, err = s.Tasks(ctx, []string{"shutdown_and_purge_room"}, "!room:a.example", []Status{StatusScheduled, StatusActive})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// Empty statuses means all statuses.
	tasks, err = s.Tasks(ctx, []string{"shutdown_and_purge_room"}, "!room:a.example", nil)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
