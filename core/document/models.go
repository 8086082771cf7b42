package document

import (
	"time"

	"github.com/sumano/oms/core"
)

// Document types
const (
	TypeIntake     = "intake"
	TypeAcceptance = "acceptance"
	TypeChange     = "change"
	TypeHandover   = "handover"
	TypeLegal      = "legal"
)

// Template statuses
const (
	TemplateDraft     = "draft"
	TemplatePublished = "published"
	TemplateArchived  = "archived"
)

// Instance statuses
const (
	InstanceGenerated = "generated"
	InstanceSigned    = "signed"
	InstanceArchived  = "archived"
)

// Template is a versioned, reusable document body. Content is a Go
// html/template source; RequiredFields names the data keys every render
// must provide.
type Template struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DocType        string    `json:"doc_type"`
	Description    string    `json:"description"`
	Content        string    `json:"content"`
	RequiredFields []string  `json:"required_fields"`
	Version        int       `json:"version"`
	Status         string    `json:"status"`
	CreatedByID    string    `json:"created_by_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (t *Template) IsPublished() bool { return t.Status == TemplatePublished }

// Instance is a document generated from a Template with concrete data.
// RenderedHTML is the sanitized, printable result.
type Instance struct {
	ID              string                 `json:"id"`
	TemplateID      string                 `json:"template_id"`
	TemplateVersion int                    `json:"template_version"`
	DocType         string                 `json:"doc_type"`
	Title           string                 `json:"title"`
	ProjectID       string                 `json:"project_id,omitempty"`
	Data            map[string]interface{} `json:"data"`
	RenderedHTML    string                 `json:"rendered_html"`
	Status          string                 `json:"status"`
	GeneratedByID   string                 `json:"generated_by_id,omitempty"`
	GeneratedAt     time.Time              `json:"generated_at"`
	SignedAt        time.Time              `json:"signed_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewTemplate contains information needed to create a document Template.
type NewTemplate struct {
	Name           string   `json:"name" validate:"required,max=200"`
	DocType        string   `json:"doc_type" validate:"required,oneof=intake acceptance change handover legal"`
	Description    string   `json:"description"`
	Content        string   `json:"content" validate:"required"`
	RequiredFields []string `json:"required_fields"`
}

func (nt *NewTemplate) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	nt.DocType = core.CleanString(nt.DocType, true /* lower */)
	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	return checkTemplateSyntax(nt.Content)
}

// UpdateTemplate modifies a draft Template. Published templates are
// immutable; changing one means publishing a new version.
type UpdateTemplate struct {
	Name           string   `json:"name" validate:"omitempty,max=200"`
	Description    string   `json:"description"`
	Content        string   `json:"content"`
	RequiredFields []string `json:"required_fields"`
}

func (ut *UpdateTemplate) Validate() error {
	ut.Name = core.CleanString(ut.Name)
	if err := core.Validate.Struct(ut); err != nil {
		return err
	}
	if ut.Content != "" {
		return checkTemplateSyntax(ut.Content)
	}
	return nil
}

// NewInstance contains the data needed to generate a document from a
// published Template.
type NewInstance struct {
	TemplateID string                 `json:"template_id" validate:"required,uuid4"`
	Title      string                 `json:"title" validate:"required,max=200"`
	ProjectID  string                 `json:"project_id" validate:"omitempty,uuid4"`
	Data       map[string]interface{} `json:"data"`
}

func (ni *NewInstance) Validate() error {
	ni.Title = core.CleanString(ni.Title)
	return core.Validate.Struct(ni)
}

type QueryFilter struct {
	Search    string `query:"search"`
	DocType   string `query:"doc_type"`
	Status    string `query:"status"`
	ProjectID string `query:"project_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.DocType = core.CleanString(qf.DocType, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
