package project

import (
	"fmt"
	"time"

	"github.com/sumano/oms/core"
)

// Service types offered to clients.
const (
	TypeWebDevelopment   = "web_development"
	TypeMobileApp        = "mobile_app"
	TypeOperationsSystem = "operations_system"
	TypePortal           = "portal"
	TypeAudit            = "audit"
)

// Priority and risk levels.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

type Project struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	ClientID           string    `json:"client_id"`
	ClientContactID    string    `json:"client_contact_id,omitempty"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Objectives         string    `json:"objectives,omitempty"`
	ServiceType        string    `json:"service_type"`
	Status             string    `json:"status"`
	Priority           string    `json:"priority"`
	RiskLevel          string    `json:"risk_level"`
	ProgressPercentage int       `json:"progress_percentage"`
	EstimatedHours     float64   `json:"estimated_hours"`
	ActualHours        float64   `json:"actual_hours"`
	Budget             string    `json:"budget,omitempty"`
	StartDate          time.Time `json:"start_date,omitempty"`
	TargetEndDate      time.Time `json:"target_end_date,omitempty"`
	ActualEndDate      time.Time `json:"actual_end_date,omitempty"`
	ProjectManagerID   string    `json:"project_manager_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// MakeProjectCode builds a sequential human-readable reference,
// e.g. PROJ-2026-007.
func MakeProjectCode(year, seq int) string {
	return fmt.Sprintf("PROJ-%d-%03d", year, seq)
}

func (p *Project) IsCompleted() bool { return p.Status == StatusCompleted }
func (p *Project) IsOnHold() bool    { return p.Status == StatusOnHold }

// StatusTransition is an audit record of a project status change.
type StatusTransition struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	Reason      string    `json:"reason"`
	Notes       string    `json:"notes,omitempty"`
	ChangedByID string    `json:"changed_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Statistics aggregates project counts for the dashboard.
type Statistics struct {
	Total         int                         `json:"total"`
	Active        int                         `json:"active"`
	OnHold        int                         `json:"on_hold"`
	ByStatus      map[string]int              `json:"by_status"`
	ByServiceType map[string]ServiceTypeStats `json:"by_service_type"`
}

// ServiceTypeStats rolls up the projects of one service type.
type ServiceTypeStats struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	Completed      int     `json:"completed"`
	OnHold         int     `json:"on_hold"`
	AvgProgress    float64 `json:"avg_progress"`
	EstimatedHours float64 `json:"estimated_hours"`
	ActualHours    float64 `json:"actual_hours"`
}

// NewProject contains information needed to create a new Project.
// The project code is assigned on creation and never supplied.
type NewProject struct {
	ClientID         string    `json:"client_id" validate:"required,uuid4"`
	ClientContactID  string    `json:"client_contact_id" validate:"omitempty,uuid4"`
	Name             string    `json:"name" validate:"required,max=200"`
	Description      string    `json:"description"`
	Objectives       string    `json:"objectives"`
	ServiceType      string    `json:"service_type" validate:"omitempty,oneof=web_development mobile_app operations_system portal audit"`
	Priority         string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	RiskLevel        string    `json:"risk_level" validate:"omitempty,oneof=low medium high"`
	EstimatedHours   float64   `json:"estimated_hours" validate:"gte=0"`
	Budget           string    `json:"budget"`
	StartDate        time.Time `json:"start_date"`
	TargetEndDate    time.Time `json:"target_end_date"`
	ProjectManagerID string    `json:"project_manager_id" validate:"omitempty,uuid4"`
}

func (np *NewProject) Validate() error {
	np.Name = core.CleanString(np.Name)
	if np.ServiceType == "" {
		np.ServiceType = TypeWebDevelopment
	}
	if np.Priority == "" {
		np.Priority = LevelMedium
	}
	if np.RiskLevel == "" {
		np.RiskLevel = LevelLow
	}
	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	if !np.StartDate.IsZero() && !np.TargetEndDate.IsZero() && np.TargetEndDate.Before(np.StartDate) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "target_end_date", Error: "target end date cannot be before start date",
		})
	}
	return nil
}

// UpdateProject defines what information may be provided to modify a Project.
// Status is deliberately absent; it only moves via Transition.
type UpdateProject struct {
	Name             string    `json:"name" validate:"omitempty,max=200"`
	Description      string    `json:"description"`
	Objectives       string    `json:"objectives"`
	ServiceType      string    `json:"service_type" validate:"omitempty,oneof=web_development mobile_app operations_system portal audit"`
	Priority         string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	RiskLevel        string    `json:"risk_level" validate:"omitempty,oneof=low medium high"`
	EstimatedHours   float64   `json:"estimated_hours" validate:"gte=0"`
	ActualHours      float64   `json:"actual_hours" validate:"gte=0"`
	Budget           string    `json:"budget"`
	ClientContactID  string    `json:"client_contact_id" validate:"omitempty,uuid4"`
	StartDate        time.Time `json:"start_date"`
	TargetEndDate    time.Time `json:"target_end_date"`
	ProjectManagerID string    `json:"project_manager_id" validate:"omitempty,uuid4"`
}

func (up *UpdateProject) Validate() error {
	up.Name = core.CleanString(up.Name)
	return core.Validate.Struct(up)
}

// NewTransition is a request to move a project to a new status.
type NewTransition struct {
	Status string `json:"status" validate:"required,projectstatus"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (nt *NewTransition) Validate() error {
	nt.Status = core.CleanString(nt.Status, true /* lower */)
	return core.Validate.Struct(nt)
}

type QueryFilter struct {
	Search      string `query:"search"`
	Status      string `query:"status"`
	ServiceType string `query:"service_type"`
	ClientID    string `query:"client_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.ServiceType = core.CleanString(qf.ServiceType, true /* lower */)
}
