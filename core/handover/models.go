package handover

import (
	"time"

	"github.com/sumano/oms/core"
)

// Go/No-Go decisions
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionHold     = "hold"
)

// Checklist section keys, in presentation order.
const (
	SectionTechnicalSetup  = "technical_setup"
	SectionCorePages       = "core_pages"
	SectionContentAccuracy = "content_accuracy"
	SectionSecurity        = "security_compliance"
	SectionTraining        = "training_handover_prep"
	SectionFinalTestRun    = "final_test_run"
)

// SectionOrder is the canonical ordering of checklist sections.
var SectionOrder = []string{
	SectionTechnicalSetup,
	SectionCorePages,
	SectionContentAccuracy,
	SectionSecurity,
	SectionTraining,
	SectionFinalTestRun,
}

// checklistItems fixes the item keys of every section. Submitted checklists
// may only check or uncheck these; unknown keys are rejected.
var checklistItems = map[string][]string{
	SectionTechnicalSetup: {
		"domain_configured",
		"ssl_active",
		"site_load_ok",
		"responsive_design",
		"no_broken_links",
	},
	SectionCorePages: {
		"home_completed",
		"about_news_added",
		"contact_correct",
		"portal_links_ok",
		"social_media_tested",
	},
	SectionContentAccuracy: {
		"logo_correct",
		"photos_optimized",
		"text_proofread",
		"info_matches_official",
	},
	SectionSecurity: {
		"admin_created",
		"restricted_access",
		"privacy_statement_included",
	},
	SectionTraining: {
		"training_scheduled",
		"training_materials_ready",
		"howto_instructions",
		"support_contact_added",
	},
	SectionFinalTestRun: {
		"browsers_tested",
		"forms_tested",
		"backup_taken",
		"screenshots_captured",
	},
}

// Checklist maps section key -> item key -> checked.
type Checklist map[string]map[string]bool

// NewChecklist returns a checklist with every known item unchecked.
func NewChecklist() Checklist {
	cl := make(Checklist, len(checklistItems))
	for section, items := range checklistItems {
		cl[section] = make(map[string]bool, len(items))
		for _, item := range items {
			cl[section][item] = false
		}
	}
	return cl
}

// ItemCount returns the total number of checklist items.
func ItemCount() int {
	var n int
	for _, items := range checklistItems {
		n += len(items)
	}
	return n
}

// SectionItems returns the fixed item keys of a section, nil if unknown.
func SectionItems(section string) []string {
	return checklistItems[section]
}

// CompletionPercentage reports how much of the checklist is done, 0-100.
func (cl Checklist) CompletionPercentage() float64 {
	total := ItemCount()
	if total == 0 {
		return 0
	}
	var checked int
	for section, items := range checklistItems {
		for _, item := range items {
			if cl[section][item] {
				checked++
			}
		}
	}
	pct := float64(checked) / float64(total) * 100
	return float64(int(pct*10)) / 10 // one decimal place
}

// IsComplete reports whether every item is checked.
func (cl Checklist) IsComplete() bool {
	for section, items := range checklistItems {
		for _, item := range items {
			if !cl[section][item] {
				return false
			}
		}
	}
	return true
}

// SectionCompletion reports per-section completion, 0-100.
func (cl Checklist) SectionCompletion() map[string]float64 {
	res := make(map[string]float64, len(checklistItems))
	for section, items := range checklistItems {
		var checked int
		for _, item := range items {
			if cl[section][item] {
				checked++
			}
		}
		res[section] = float64(checked) / float64(len(items)) * 100
	}
	return res
}

// Handover is the pilot handover checklist of a project.
type Handover struct {
	ID                   string            `json:"id"`
	ProjectID            string            `json:"project_id"`
	Checklist            Checklist         `json:"checklist"`
	SectionNotes         map[string]string `json:"section_notes,omitempty"`
	CompletionPercentage float64           `json:"completion_percentage"`
	GoNoGoDecision       string            `json:"go_no_go_decision"`
	DecisionNotes        string            `json:"decision_notes,omitempty"`
	ReviewedByID         string            `json:"reviewed_by_id,omitempty"`
	ReviewedAt           time.Time         `json:"reviewed_at,omitempty"`
	DocumentID           string            `json:"document_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// NewHandover contains information needed to open a handover checklist.
type NewHandover struct {
	ProjectID string `json:"project_id" validate:"required,uuid4"`
}

func (nh *NewHandover) Validate() error { return core.Validate.Struct(nh) }

// UpdateChecklist checks or unchecks checklist items. Only items present in
// the payload are touched.
type UpdateChecklist struct {
	Items        Checklist         `json:"items" validate:"required"`
	SectionNotes map[string]string `json:"section_notes"`
}

func (uc *UpdateChecklist) Validate() error {
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	var fieldErrs []core.FieldError
	for section, items := range uc.Items {
		known := checklistItems[section]
		if known == nil {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "items", Error: "unknown section: " + section})
			continue
		}
		for item := range items {
			if !contains(known, item) {
				fieldErrs = append(fieldErrs, core.FieldError{Field: "items", Error: "unknown item: " + section + "." + item})
			}
		}
	}
	for section := range uc.SectionNotes {
		if checklistItems[section] == nil {
			fieldErrs = append(fieldErrs, core.FieldError{Field: "section_notes", Error: "unknown section: " + section})
		}
	}
	if len(fieldErrs) > 0 {
		return core.NewValidationError(nil, fieldErrs...)
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// NewDecision records the go/no-go review outcome.
type NewDecision struct {
	Decision string `json:"decision" validate:"required,oneof=approved hold"`
	Notes    string `json:"notes"`
}

func (nd *NewDecision) Validate() error {
	nd.Decision = core.CleanString(nd.Decision, true /* lower */)
	return core.Validate.Struct(nd)
}

type QueryFilter struct {
	ProjectID string `query:"project_id"`
	Decision  string `query:"go_no_go_decision"`
}
