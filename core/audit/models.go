package audit

import (
	"time"

	"github.com/sumano/oms/core"
)

// Security event types
const (
	EventLoginSuccess         = "login_success"
	EventLoginFailure         = "login_failure"
	EventLoginThrottled       = "login_throttled"
	EventTokenRefresh         = "token_refresh"
	EventPasswordResetRequest = "password_reset_request"
	EventPasswordReset        = "password_reset"
)

// Event severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// SeverityFor maps an event type to the severity recorded with it.
func SeverityFor(eventType string) string {
	switch eventType {
	case EventLoginFailure, EventLoginThrottled:
		return SeverityWarning
	}
	return SeverityInfo
}

// SecurityEvent records an authentication-related action. Events are
// append-only; review only flips the resolution fields.
type SecurityEvent struct {
	ID           string                 `json:"id"`
	EventType    string                 `json:"event_type"`
	Severity     string                 `json:"severity"`
	UserID       string                 `json:"user_id,omitempty"`
	Username     string                 `json:"username,omitempty"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Resolved     bool                   `json:"resolved"`
	ResolvedByID string                 `json:"resolved_by_id,omitempty"`
	ResolvedAt   time.Time              `json:"resolved_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// BulkResolve marks a batch of events as reviewed.
type BulkResolve struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid4"`
}

func (br *BulkResolve) Validate() error {
	return core.Validate.Struct(br)
}

// EventCount is one row of the statistics aggregation.
type EventCount struct {
	EventType string
	Severity  string
	Count     int
}

// Statistics aggregates events recorded since a point in time.
type Statistics struct {
	Since      time.Time      `json:"since"`
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	BySeverity map[string]int `json:"by_severity"`
}

type QueryFilter struct {
	EventType string `query:"event_type"`
	Severity  string `query:"severity"`
	UserID    string `query:"user_id"`
	IPAddress string `query:"ip_address"`
	Resolved  string `query:"resolved"`
	From      string `query:"from"`
	To        string `query:"to"`
}

func (qf *QueryFilter) Clean() {
	qf.EventType = core.CleanString(qf.EventType, true /* lower */)
	qf.Severity = core.CleanString(qf.Severity, true /* lower */)
	qf.Resolved = core.CleanString(qf.Resolved, true /* lower */)
}
