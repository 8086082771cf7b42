package attachment

import (
	"time"
)

// Outbox entry statuses.
const (
	OutboxPending   = "pending"
	OutboxCompleted = "completed"
	OutboxFailed    = "failed"
)

const (
	// outboxMaxAttempts is how many times a queued upload is retried
	// before being marked failed.
	outboxMaxAttempts = 5
	// outboxBackoff is the linear backoff unit; attempt n waits n*outboxBackoff.
	outboxBackoff = 30 * time.Second
)

// OutboxEntry is a queued upload awaiting finalization. Clients that lose
// connectivity mid-upload can resubmit with the same idempotency key
// without creating duplicates.
type OutboxEntry struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type"`
	SizeBytes      int64     `json:"size_bytes"`
	Checksum       string    `json:"checksum"`
	StagingPath    string    `json:"-"`
	Description    string    `json:"description,omitempty"`
	UploadedByID   string    `json:"uploaded_by_id"`
	Status         string    `json:"status"`
	Attempts       int       `json:"attempts"`
	NextAttemptAt  time.Time `json:"next_attempt_at"`
	LastError      string    `json:"last_error,omitempty"`
	AttachmentID   string    `json:"attachment_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Due reports whether the entry should be attempted now.
func (e *OutboxEntry) Due(now time.Time) bool {
	return e.Status == OutboxPending && !e.NextAttemptAt.After(now)
}

func (e *OutboxEntry) scheduleRetry(now time.Time, err error) {
	e.Attempts++
	e.LastError = err.Error()
	if e.Attempts >= outboxMaxAttempts {
		e.Status = OutboxFailed
	} else {
		e.NextAttemptAt = now.Add(time.Duration(e.Attempts) * outboxBackoff)
	}
	e.UpdatedAt = now
}
