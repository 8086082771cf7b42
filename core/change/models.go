package change

import (
	"fmt"
	"time"

	"github.com/sumano/oms/core"
)

// Change request workflow statuses.
const (
	StatusDraft          = "draft"
	StatusSubmitted      = "submitted"
	StatusUnderReview    = "under_review"
	StatusImpactAssessed = "impact_assessed"
	StatusClientDecision = "client_decision"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
	StatusImplemented    = "implemented"
	StatusClosed         = "closed"
)

// Client decisions on an assessed change request.
const (
	DecisionProceed  = "proceed"
	DecisionDefer    = "defer"
	DecisionWithdraw = "withdraw"
)

// Priorities
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Signature parties
const (
	PartyClient   = "client"
	PartyProvider = "provider"
)

// Signature is a typed-name signature captured on a change request or
// acceptance record.
type Signature struct {
	Name     string    `json:"name"`
	Title    string    `json:"title,omitempty"`
	SignedAt time.Time `json:"signed_at"`
}

func (s Signature) IsSigned() bool { return s.Name != "" && !s.SignedAt.IsZero() }

// ImpactAssessment captures the provider's analysis of a requested change.
type ImpactAssessment struct {
	ScheduleImpact string `json:"schedule_impact"`
	CostImpact     string `json:"cost_impact"`
	ScopeImpact    string `json:"scope_impact"`
	AssessedByID   string `json:"assessed_by_id,omitempty"`
}

func (ia ImpactAssessment) IsComplete() bool {
	return ia.ScheduleImpact != "" && ia.CostImpact != "" && ia.ScopeImpact != ""
}

type Request struct {
	ID                string           `json:"id"`
	RequestNumber     string           `json:"request_number"`
	ProjectID         string           `json:"project_id"`
	RequestedByID     string           `json:"requested_by_id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Reason            string           `json:"reason"`
	Priority          string           `json:"priority"`
	Status            string           `json:"status"`
	Impact            ImpactAssessment `json:"impact"`
	Decision          string           `json:"decision,omitempty"`
	DecisionNotes     string           `json:"decision_notes,omitempty"`
	DecisionAt        time.Time        `json:"decision_at,omitempty"`
	ClientSignature   Signature        `json:"client_signature"`
	ProviderSignature Signature        `json:"provider_signature"`
	DocumentID        string           `json:"document_id,omitempty"`
	SubmittedAt       time.Time        `json:"submitted_at,omitempty"`
	ImplementedAt     time.Time        `json:"implemented_at,omitempty"`
	ClosedAt          time.Time        `json:"closed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// FullySigned reports whether both parties have signed.
func (r *Request) FullySigned() bool {
	return r.ClientSignature.IsSigned() && r.ProviderSignature.IsSigned()
}

func (r *Request) IsTerminal() bool { return r.Status == StatusClosed }

// MakeRequestNumber builds a sequential human-readable reference,
// e.g. "CR-2026-0042".
func MakeRequestNumber(year, seq int) string {
	return fmt.Sprintf("CR-%d-%04d", year, seq)
}

// NewRequest contains information needed to create a new change Request.
type NewRequest struct {
	ProjectID   string `json:"project_id" validate:"required,uuid4"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Reason      string `json:"reason"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

func (nr *NewRequest) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	if nr.Priority == "" {
		nr.Priority = PriorityMedium
	}
	return core.Validate.Struct(nr)
}

// UpdateRequest modifies a draft change Request.
type UpdateRequest struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

func (ur *UpdateRequest) Validate() error {
	ur.Title = core.CleanString(ur.Title)
	return core.Validate.Struct(ur)
}

// NewAssessment records the impact assessment on a change Request under review.
type NewAssessment struct {
	ScheduleImpact string `json:"schedule_impact" validate:"required"`
	CostImpact     string `json:"cost_impact" validate:"required"`
	ScopeImpact    string `json:"scope_impact" validate:"required"`
}

func (na *NewAssessment) Validate() error { return core.Validate.Struct(na) }

// NewDecision records the client's decision on an assessed change Request.
type NewDecision struct {
	Decision string `json:"decision" validate:"required,oneof=proceed defer withdraw"`
	Notes    string `json:"notes"`
}

func (nd *NewDecision) Validate() error {
	nd.Decision = core.CleanString(nd.Decision, true /* lower */)
	return core.Validate.Struct(nd)
}

// NewSignature signs a change Request for one party.
type NewSignature struct {
	Party string `json:"party" validate:"required,oneof=client provider"`
	Name  string `json:"name" validate:"required,max=200"`
	Title string `json:"title" validate:"max=100"`
}

func (ns *NewSignature) Validate() error {
	ns.Party = core.CleanString(ns.Party, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

// Statistics aggregates change request counts for the dashboard.
type Statistics struct {
	Total    int            `json:"total"`
	Open     int            `json:"open"`
	ByStatus map[string]int `json:"by_status"`
}

// PendingQueues groups in-flight requests by the party expected to act next:
// staff for reviews, the client for decisions, either party for signatures.
type PendingQueues struct {
	AwaitingReview    []Request `json:"awaiting_review"`
	AwaitingDecision  []Request `json:"awaiting_decision"`
	AwaitingSignature []Request `json:"awaiting_signature"`
}

type QueryFilter struct {
	Search    string `query:"search"`
	Status    string `query:"status"`
	Priority  string `query:"priority"`
	ProjectID string `query:"project_id"`

	// Statuses narrows to a status set. Internal, not bound from requests.
	Statuses []string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
