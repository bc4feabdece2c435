package export

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRun_Lifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	scheduleID := uuid.New()

	run := NewFiring(scheduleID, TriggerManual, now)
	assert.Equal(t, 1, run.Attempt)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NotEqual(t, uuid.Nil, run.FiringID)

	t.Run("cannot retry a running run", func(t *testing.T) {
		_, err := run.NextAttempt(now, 0)
		assert.ErrorIs(t, err, ErrRunNotRetryable)
	})

	require.NoError(t, run.Fail(now.Add(time.Second), "smtp down"))
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "smtp down", run.ErrorMessage)

	t.Run("failed run cannot succeed", func(t *testing.T) {
		err := run.Succeed(now, 1, "x")
		assert.ErrorIs(t, err, ErrInvalidRunTransition)
	})

	t.Run("delayed retry is pending in the same firing", func(t *testing.T) {
		next, err := run.NextAttempt(now, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 2, next.Attempt)
		assert.Equal(t, run.FiringID, next.FiringID)
		assert.Equal(t, TriggerRetry, next.Trigger)
		assert.Equal(t, RunStatusPending, next.Status)
		require.NotNil(t, next.ScheduledFor)
		assert.Equal(t, now.Add(time.Minute), *next.ScheduledFor)
		assert.Nil(t, next.StartedAt)

		require.NoError(t, next.Start(now.Add(time.Minute)))
		require.NoError(t, next.Succeed(now.Add(2*time.Minute), 5, "s3://b/k.csv"))
		assert.Equal(t, RunStatusSucceeded, next.Status)
		assert.Equal(t, 5, next.RowCount)

		_, err = next.NextAttempt(now, 0)
		assert.ErrorIs(t, err, ErrRunNotRetryable)
	})

	t.Run("immediate retry starts running", func(t *testing.T) {
		next, err := run.NextAttempt(now, 0)
		require.NoError(t, err)
		assert.Equal(t, RunStatusRunning, next.Status)
		assert.NotNil(t, next.StartedAt)
	})
}

func TestExportRun_QueueAttempt(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	run := NewFiring(uuid.New(), TriggerCron, now)
	require.NoError(t, run.Fail(now, "boom"))

	next, err := run.QueueAttempt(now, now)
	require.NoError(t, err)
	assert.Equal(t, RunStatusPending, next.Status, "zero backoff still queues")
	assert.Equal(t, now, *next.ScheduledFor)
	assert.Equal(t, 2, next.Attempt)
}

func TestExportRun_FailPending(t *testing.T) {
	now := time.Now()
	failed := NewFiring(uuid.New(), TriggerCron, now)
	require.NoError(t, failed.Fail(now, "boom"))

	pending, err := failed.NextAttempt(now, time.Hour)
	require.NoError(t, err)
	require.NoError(t, pending.Reschedule(now.Add(2*time.Hour)))
	require.NoError(t, pending.Fail(now, "schedule deleted"))
	assert.Equal(t, RunStatusFailed, pending.Status)

	assert.ErrorIs(t, pending.Fail(now, "again"), ErrInvalidRunTransition)
	assert.ErrorIs(t, pending.Start(now), ErrInvalidRunTransition)
}

func TestRunStatus(t *testing.T) {
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.True(t, RunStatusSucceeded.IsTerminal())
	assert.False(t, RunStatusPending.IsTerminal())
	assert.False(t, RunStatus("weird").IsValid())
}
