package client

import (
	"time"

	"github.com/sumano/oms/core"
)

// Organization statuses
const (
	OrgStatusProspect = "prospect"
	OrgStatusActive   = "active"
	OrgStatusInactive = "inactive"
	OrgStatusFormer   = "former"
)

// Contact role types
const (
	ContactRoleDecisionMaker  = "decision_maker"
	ContactRoleProjectManager = "project_manager"
	ContactRoleTechnicalLead  = "technical_lead"
	ContactRoleStakeholder    = "stakeholder"
	ContactRoleEndUser        = "end_user"
	ContactRoleBilling        = "billing"
	ContactRoleOther          = "other"
)

// Contract types
const (
	ContractProjectBased = "project_based"
	ContractRetainer     = "retainer"
	ContractHourly       = "hourly"
	ContractFixedPrice   = "fixed_price"
	ContractMilestone    = "milestone"
)

// Timeline preferences for intake
const (
	TimelineASAP     = "asap"
	Timeline1Month   = "1_month"
	Timeline3Months  = "3_months"
	Timeline6Months  = "6_months"
	TimelineFlexible = "flexible"
)

type Organization struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	LegalName        string    `json:"legal_name"`
	OrganizationType string    `json:"organization_type"`
	Industry         string    `json:"industry"`
	Website          string    `json:"website"`
	Description      string    `json:"description"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	AddressLine1     string    `json:"address_line1"`
	AddressLine2     string    `json:"address_line2"`
	City             string    `json:"city"`
	StateProvince    string    `json:"state_province"`
	PostalCode       string    `json:"postal_code"`
	Country          string    `json:"country"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Contact struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Title            string    `json:"title"`
	Department       string    `json:"department"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Mobile           string    `json:"mobile"`
	RoleType         string    `json:"role_type"`
	IsPrimaryContact bool      `json:"is_primary_contact"`
	Status           string    `json:"status"`
	Notes            string    `json:"notes"`
	UserID           string    `json:"user_id,omitempty"` // linked portal account, if any
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Client is the relationship profile linking an Organization to service delivery.
type Client struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organization_id"`
	ClientSince        time.Time `json:"client_since"`
	RelationshipStatus string    `json:"relationship_status"`
	ContractType       string    `json:"contract_type"`
	BillingContactID   string    `json:"billing_contact_id,omitempty"`
	Notes              string    `json:"notes"`
	InternalRating     int       `json:"internal_rating"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (c *Client) IsActive() bool {
	return c.RelationshipStatus == OrgStatusActive
}

// Intake is a pilot project intake form submission.
type Intake struct {
	ID                  string                 `json:"id"`
	OrganizationID      string                 `json:"organization_id,omitempty"`
	SchoolName          string                 `json:"school_name"`
	Address             string                 `json:"address"`
	ContactPerson       string                 `json:"contact_person"`
	RolePosition        string                 `json:"role_position"`
	PhoneWhatsapp       string                 `json:"phone_whatsapp"`
	Email               string                 `json:"email"`
	CurrentWebsite      string                 `json:"current_website"`
	NumberOfStudents    int                    `json:"number_of_students"`
	NumberOfStaff       int                    `json:"number_of_staff"`
	ProjectTypes        []string               `json:"project_type"`
	ProjectPurposes     []string               `json:"project_purpose"`
	PilotScopeFeatures  []string               `json:"pilot_scope_features"`
	PilotStartDate      time.Time              `json:"pilot_start_date"`
	PilotEndDate        time.Time              `json:"pilot_end_date"`
	TimelinePreference  string                 `json:"timeline_preference"`
	DesignPreferences   map[string]interface{} `json:"design_preferences"`
	LogoColors          map[string]interface{} `json:"logo_colors"`
	ContentAvailability bool                   `json:"content_availability"`
	MaintenancePlan     map[string]interface{} `json:"maintenance_plan"`
	TokenCommitmentFee  string                 `json:"token_commitment_fee"`
	AdditionalNotes     string                 `json:"additional_notes"`
	Acknowledgment      map[string]interface{} `json:"acknowledgment"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// IsComplete reports whether all fields required to start a pilot are filled.
func (in *Intake) IsComplete() bool {
	if in.SchoolName == "" || in.ContactPerson == "" || in.Email == "" || in.TimelinePreference == "" {
		return false
	}
	return len(in.ProjectTypes) > 0 && len(in.ProjectPurposes) > 0 && len(in.PilotScopeFeatures) > 0
}

// CompletionPercentage reports how much of the intake form has been filled, 0-100.
func (in *Intake) CompletionPercentage() float64 {
	fields := []bool{
		in.SchoolName != "",
		in.Address != "",
		in.ContactPerson != "",
		in.RolePosition != "",
		in.PhoneWhatsapp != "",
		in.Email != "",
		in.CurrentWebsite != "",
		in.NumberOfStudents > 0,
		in.NumberOfStaff > 0,
		len(in.ProjectTypes) > 0,
		len(in.ProjectPurposes) > 0,
		len(in.PilotScopeFeatures) > 0,
		!in.PilotStartDate.IsZero(),
		!in.PilotEndDate.IsZero(),
		in.TimelinePreference != "",
		len(in.DesignPreferences) > 0,
		len(in.LogoColors) > 0,
		in.ContentAvailability,
		len(in.MaintenancePlan) > 0,
		in.TokenCommitmentFee != "",
		in.AdditionalNotes != "",
		len(in.Acknowledgment) > 0,
	}
	var completed int
	for _, filled := range fields {
		if filled {
			completed++
		}
	}
	pct := float64(completed) / float64(len(fields)) * 100
	return float64(int(pct*10)) / 10 // one decimal place
}

// NewOrganization contains information needed to create a new Organization.
type NewOrganization struct {
	Name             string `json:"name" validate:"required,max=200"`
	LegalName        string `json:"legal_name" validate:"max=200"`
	OrganizationType string `json:"organization_type" validate:"omitempty,oneof=business nonprofit educational government healthcare other"`
	Industry         string `json:"industry" validate:"max=100"`
	Website          string `json:"website" validate:"omitempty,url"`
	Description      string `json:"description"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	Email            string `json:"email" validate:"omitempty,email"`
	AddressLine1     string `json:"address_line1" validate:"max=200"`
	AddressLine2     string `json:"address_line2" validate:"max=200"`
	City             string `json:"city" validate:"max=100"`
	StateProvince    string `json:"state_province" validate:"max=100"`
	PostalCode       string `json:"postal_code" validate:"max=20"`
	Country          string `json:"country" validate:"max=100"`
	Status           string `json:"status" validate:"omitempty,oneof=active inactive prospect former"`
}

func (no *NewOrganization) Validate() error {
	no.Name = core.CleanString(no.Name)
	no.Email = core.CleanString(no.Email, true /* lower */)
	if no.OrganizationType == "" {
		no.OrganizationType = "business"
	}
	if no.Status == "" {
		no.Status = OrgStatusProspect
	}
	return core.Validate.Struct(no)
}

// UpdateOrganization defines what information may be provided to modify an Organization.
type UpdateOrganization struct {
	Name             string `json:"name" validate:"omitempty,max=200"`
	LegalName        string `json:"legal_name" validate:"max=200"`
	OrganizationType string `json:"organization_type" validate:"omitempty,oneof=business nonprofit educational government healthcare other"`
	Industry         string `json:"industry" validate:"max=100"`
	Website          string `json:"website" validate:"omitempty,url"`
	Description      string `json:"description"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	Email            string `json:"email" validate:"omitempty,email"`
	AddressLine1     string `json:"address_line1" validate:"max=200"`
	AddressLine2     string `json:"address_line2" validate:"max=200"`
	City             string `json:"city" validate:"max=100"`
	StateProvince    string `json:"state_province" validate:"max=100"`
	PostalCode       string `json:"postal_code" validate:"max=20"`
	Country          string `json:"country" validate:"max=100"`
	Status           string `json:"status" validate:"omitempty,oneof=active inactive prospect former"`
}

func (uo *UpdateOrganization) Validate() error {
	uo.Name = core.CleanString(uo.Name)
	uo.Email = core.CleanString(uo.Email, true /* lower */)
	return core.Validate.Struct(uo)
}

// NewContact contains information needed to create a new Contact.
type NewContact struct {
	OrganizationID   string `json:"organization_id" validate:"required,uuid4"`
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Title            string `json:"title" validate:"max=100"`
	Department       string `json:"department" validate:"max=100"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	Mobile           string `json:"mobile" validate:"omitempty,phone"`
	RoleType         string `json:"role_type" validate:"omitempty,oneof=decision_maker project_manager technical_lead stakeholder end_user billing other"`
	IsPrimaryContact bool   `json:"is_primary_contact"`
	UserID           string `json:"user_id" validate:"omitempty,uuid4"` // portal account to link
	Notes            string `json:"notes"`
}

func (nc *NewContact) Validate(svc ServiceInterface) error {
	nc.FirstName = core.CleanString(nc.FirstName)
	nc.LastName = core.CleanString(nc.LastName)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	if nc.RoleType == "" {
		nc.RoleType = ContactRoleStakeholder
	}
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckContactUniqueness(nc.OrganizationID, nc.Email)
}

// UpdateContact defines what information may be provided to modify a Contact.
type UpdateContact struct {
	FirstName        string `json:"first_name" validate:"omitempty,max=100"`
	LastName         string `json:"last_name" validate:"omitempty,max=100"`
	Title            string `json:"title" validate:"max=100"`
	Department       string `json:"department" validate:"max=100"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	Mobile           string `json:"mobile" validate:"omitempty,phone"`
	RoleType         string `json:"role_type" validate:"omitempty,oneof=decision_maker project_manager technical_lead stakeholder end_user billing other"`
	IsPrimaryContact *bool  `json:"is_primary_contact"`
	UserID           string `json:"user_id" validate:"omitempty,uuid4"`
	Status           string `json:"status" validate:"omitempty,oneof=active inactive former"`
	Notes            string `json:"notes"`
}

func (uc *UpdateContact) Validate(orig Contact, svc ServiceInterface) error {
	uc.FirstName = core.CleanString(uc.FirstName)
	uc.LastName = core.CleanString(uc.LastName)
	uc.Email = core.CleanString(uc.Email, true /* lower */)
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	if uc.Email != "" && uc.Email != orig.Email {
		return svc.CheckContactUniqueness(orig.OrganizationID, uc.Email, orig)
	}
	return nil
}

// NewClient contains information needed to create a new Client profile.
type NewClient struct {
	OrganizationID     string    `json:"organization_id" validate:"required,uuid4"`
	ClientSince        time.Time `json:"client_since" validate:"required"`
	RelationshipStatus string    `json:"relationship_status" validate:"omitempty,oneof=prospect active on_hold former"`
	ContractType       string    `json:"contract_type" validate:"omitempty,oneof=project_based retainer hourly fixed_price milestone"`
	BillingContactID   string    `json:"billing_contact_id" validate:"omitempty,uuid4"`
	Notes              string    `json:"notes"`
	InternalRating     int       `json:"internal_rating" validate:"omitempty,min=1,max=5"`
}

func (nc *NewClient) Validate() error {
	if nc.RelationshipStatus == "" {
		nc.RelationshipStatus = OrgStatusProspect
	}
	return core.Validate.Struct(nc)
}

// UpdateClient defines what information may be provided to modify a Client profile.
type UpdateClient struct {
	RelationshipStatus string `json:"relationship_status" validate:"omitempty,oneof=prospect active on_hold former"`
	ContractType       string `json:"contract_type" validate:"omitempty,oneof=project_based retainer hourly fixed_price milestone"`
	BillingContactID   string `json:"billing_contact_id" validate:"omitempty,uuid4"`
	Notes              string `json:"notes"`
	InternalRating     int    `json:"internal_rating" validate:"omitempty,min=1,max=5"`
}

func (uc *UpdateClient) Validate() error { return core.Validate.Struct(uc) }

// NewIntake contains a pilot intake form submission.
type NewIntake struct {
	OrganizationID      string                 `json:"organization_id" validate:"omitempty,uuid4"`
	SchoolName          string                 `json:"school_name" validate:"required,max=200"`
	Address             string                 `json:"address"`
	ContactPerson       string                 `json:"contact_person" validate:"required,max=200"`
	RolePosition        string                 `json:"role_position" validate:"max=100"`
	PhoneWhatsapp       string                 `json:"phone_whatsapp" validate:"omitempty,phone"`
	Email               string                 `json:"email" validate:"required,email"`
	CurrentWebsite      string                 `json:"current_website" validate:"omitempty,url"`
	NumberOfStudents    int                    `json:"number_of_students" validate:"omitempty,min=0"`
	NumberOfStaff       int                    `json:"number_of_staff" validate:"omitempty,min=0"`
	ProjectTypes        []string               `json:"project_type" validate:"required,min=1"`
	ProjectPurposes     []string               `json:"project_purpose" validate:"required,min=1"`
	PilotScopeFeatures  []string               `json:"pilot_scope_features" validate:"required,min=1"`
	PilotStartDate      time.Time              `json:"pilot_start_date"`
	PilotEndDate        time.Time              `json:"pilot_end_date"`
	TimelinePreference  string                 `json:"timeline_preference" validate:"required,oneof=asap 1_month 3_months 6_months flexible"`
	DesignPreferences   map[string]interface{} `json:"design_preferences"`
	LogoColors          map[string]interface{} `json:"logo_colors"`
	ContentAvailability bool                   `json:"content_availability"`
	MaintenancePlan     map[string]interface{} `json:"maintenance_plan"`
	TokenCommitmentFee  string                 `json:"token_commitment_fee"`
	AdditionalNotes     string                 `json:"additional_notes"`
	Acknowledgment      map[string]interface{} `json:"acknowledgment"`
}

func (ni *NewIntake) Validate() error {
	ni.SchoolName = core.CleanString(ni.SchoolName)
	ni.ContactPerson = core.CleanString(ni.ContactPerson)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	if err := core.Validate.Struct(ni); err != nil {
		return err
	}
	if !ni.PilotStartDate.IsZero() && !ni.PilotEndDate.IsZero() && ni.PilotEndDate.Before(ni.PilotStartDate) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "pilot_end_date", Error: "end date cannot be before start date",
		})
	}
	return nil
}

type QueryFilter struct {
	Search   string `query:"search"`
	Status   string `query:"status"`
	OrgID    string `query:"organization_id"`
	RoleType string `query:"role_type"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
