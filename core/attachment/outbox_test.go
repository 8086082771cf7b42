package attachment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutboxEntryDue(t *testing.T) {
	now := time.Now()

	entry := OutboxEntry{Status: OutboxPending, NextAttemptAt: now}
	assert.True(t, entry.Due(now))
	assert.True(t, entry.Due(now.Add(time.Minute)))

	entry.NextAttemptAt = now.Add(time.Minute)
	assert.False(t, entry.Due(now))

	entry.Status = OutboxCompleted
	entry.NextAttemptAt = now
	assert.False(t, entry.Due(now))
	entry.Status = OutboxFailed
	assert.False(t, entry.Due(now))
}

func TestOutboxEntryScheduleRetry(t *testing.T) {
	now := time.Now()
	entry := OutboxEntry{Status: OutboxPending, NextAttemptAt: now}

	// backoff grows linearly with each failed attempt
	for attempt := 1; attempt < outboxMaxAttempts; attempt++ {
		entry.scheduleRetry(now, errors.New("store unavailable"))
		assert.Equal(t, attempt, entry.Attempts)
		assert.Equal(t, OutboxPending, entry.Status)
		assert.Equal(t, now.Add(time.Duration(attempt)*outboxBackoff), entry.NextAttemptAt)
		assert.Equal(t, "store unavailable", entry.LastError)
	}

	// the last attempt gives up for good
	entry.scheduleRetry(now, errors.New("store unavailable"))
	assert.Equal(t, outboxMaxAttempts, entry.Attempts)
	assert.Equal(t, OutboxFailed, entry.Status)
	assert.False(t, entry.Due(now.Add(time.Hour)))
}
