package acceptance

import (
	"time"

	"github.com/sumano/oms/core"
)

// Acceptance outcomes
const (
	OutcomeAccepted       = "accepted"
	OutcomeWithConditions = "accepted_with_conditions"
	OutcomeNotAccepted    = "not_accepted"
)

// Signature parties
const (
	PartyClient   = "client"
	PartyProvider = "provider"
)

type Signature struct {
	Name     string    `json:"name"`
	Title    string    `json:"title,omitempty"`
	SignedAt time.Time `json:"signed_at"`
}

func (s Signature) IsSigned() bool { return s.Name != "" && !s.SignedAt.IsZero() }

// Acceptance is the formal client sign-off closing a pilot.
type Acceptance struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	HandoverID        string    `json:"handover_id,omitempty"`
	Outcome           string    `json:"outcome"`
	Conditions        string    `json:"conditions,omitempty"`
	Feedback          string    `json:"feedback,omitempty"`
	ClientSignature   Signature `json:"client_signature"`
	ProviderSignature Signature `json:"provider_signature"`
	DocumentID        string    `json:"document_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FullySigned reports whether both parties have signed.
func (a *Acceptance) FullySigned() bool {
	return a.ClientSignature.IsSigned() && a.ProviderSignature.IsSigned()
}

// NewAcceptance records a pilot acceptance outcome.
type NewAcceptance struct {
	ProjectID  string `json:"project_id" validate:"required,uuid4"`
	HandoverID string `json:"handover_id" validate:"omitempty,uuid4"`
	Outcome    string `json:"outcome" validate:"required,oneof=accepted accepted_with_conditions not_accepted"`
	Conditions string `json:"conditions"`
	Feedback   string `json:"feedback"`
}

func (na *NewAcceptance) Validate() error {
	na.Outcome = core.CleanString(na.Outcome, true /* lower */)
	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	if na.Outcome == OutcomeWithConditions && na.Conditions == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "conditions", Error: "conditions are required for a conditional acceptance",
		})
	}
	return nil
}

// NewSignature signs an Acceptance for one party.
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

type QueryFilter struct {
	ProjectID string `query:"project_id"`
	Outcome   string `query:"outcome"`
}
