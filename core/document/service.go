package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotEditable  = errors.New("only draft templates can be edited")
	ErrNotPublished = errors.New("template is not published")
)

type Repository interface {
	CreateTemplate(ctx context.Context, tmpl *Template, exec ...core.DBExecutor) error
	QueryTemplates(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Template, error)
	GetTemplate(ctx context.Context, id string, exec ...core.DBExecutor) (Template, error)
	GetPublishedTemplate(ctx context.Context, docType string, exec ...core.DBExecutor) (Template, error)
	UpdateTemplate(ctx context.Context, tmpl *Template, exec ...core.DBExecutor) error
	DeleteTemplatesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

	CreateInstance(ctx context.Context, inst *Instance, exec ...core.DBExecutor) error
	QueryInstances(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Instance, error)
	GetInstance(ctx context.Context, id string, exec ...core.DBExecutor) (Instance, error)
	UpdateInstance(ctx context.Context, inst *Instance, exec ...core.DBExecutor) error
	DeleteInstancesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
}

type ServiceInterface interface {
	CreateTemplate(ctx context.Context, nt NewTemplate, createdByID string) (Template, error)
	QueryTemplates(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Template, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	UpdateTemplate(ctx context.Context, id string, ut UpdateTemplate) (Template, error)
	PublishTemplate(ctx context.Context, id string) (Template, error)
	ArchiveTemplate(ctx context.Context, id string) (Template, error)
	DeleteTemplates(ctx context.Context, ids ...string) error

	Generate(ctx context.Context, ni NewInstance, generatedByID string) (Instance, error)
	GenerateByType(ctx context.Context, docType, title, projectID string, data map[string]interface{}, generatedByID string) (Instance, error)
	QueryInstances(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Instance, error)
	GetInstance(ctx context.Context, id string) (Instance, error)
	MarkSigned(ctx context.Context, id string) (Instance, error)
	ArchiveInstance(ctx context.Context, id string) (Instance, error)
	DeleteInstances(ctx context.Context, ids ...string) error
}

type Service struct {
	db   core.DB
	repo Repository
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) CreateTemplate(ctx context.Context, nt NewTemplate, createdByID string) (Template, error) {
	now := time.Now()
	tmpl := Template{
		ID:             uuid.New().String(),
		Name:           nt.Name,
		DocType:        nt.DocType,
		Description:    nt.Description,
		Content:        nt.Content,
		RequiredFields: nt.RequiredFields,
		Version:        1,
		Status:         TemplateDraft,
		CreatedByID:    createdByID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := svc.repo.CreateTemplate(ctx, &tmpl); err != nil {
		return Template{}, errors.Wrap(err, "creating document template")
	}
	return tmpl, nil
}

func (svc *Service) QueryTemplates(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Template, error) {
	filter.Clean()
	return svc.repo.QueryTemplates(ctx, filter, ordering)
}

func (svc *Service) GetTemplate(ctx context.Context, id string) (Template, error) {
	return svc.repo.GetTemplate(ctx, id)
}

func (svc *Service) UpdateTemplate(ctx context.Context, id string, ut UpdateTemplate) (Template, error) {
	tmpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}
	if tmpl.Status != TemplateDraft {
		return Template{}, ErrNotEditable
	}
	if ut.Name != "" {
		tmpl.Name = ut.Name
	}
	if ut.Content != "" {
		tmpl.Content = ut.Content
	}
	if ut.RequiredFields != nil {
		tmpl.RequiredFields = ut.RequiredFields
	}
	tmpl.Description = ut.Description
	tmpl.UpdatedAt = time.Now()

	if err = svc.repo.UpdateTemplate(ctx, &tmpl); err != nil {
		return Template{}, errors.Wrap(err, "updating document template")
	}
	return tmpl, nil
}

// PublishTemplate makes a draft template available for generation and
// archives any previously published template of the same type.
func (svc *Service) PublishTemplate(ctx context.Context, id string) (Template, error) {
	tmpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}
	if tmpl.Status != TemplateDraft {
		return Template{}, core.NewValidationError(nil, core.FieldError{
			Field: "status", Error: "only draft templates can be published",
		})
	}

	err = svc.db.Transaction(ctx, func(tx core.DBExecutor) error {
		prev, err := svc.repo.GetPublishedTemplate(ctx, tmpl.DocType, tx)
		switch {
		case err == nil:
			prev.Status = TemplateArchived
			prev.UpdatedAt = time.Now()
			if err = svc.repo.UpdateTemplate(ctx, &prev, tx); err != nil {
				return err
			}
			tmpl.Version = prev.Version + 1
		case errors.Is(err, ErrNotFound):
		default:
			return err
		}
		tmpl.Status = TemplatePublished
		tmpl.UpdatedAt = time.Now()
		return svc.repo.UpdateTemplate(ctx, &tmpl, tx)
	})
	if err != nil {
		return Template{}, errors.Wrap(err, "publishing document template")
	}
	return tmpl, nil
}

func (svc *Service) ArchiveTemplate(ctx context.Context, id string) (Template, error) {
	tmpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}
	tmpl.Status = TemplateArchived
	tmpl.UpdatedAt = time.Now()
	if err = svc.repo.UpdateTemplate(ctx, &tmpl); err != nil {
		return Template{}, errors.Wrap(err, "archiving document template")
	}
	return tmpl, nil
}

func (svc *Service) DeleteTemplates(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteTemplatesByID(ctx, ids)
	return err
}

// Generate renders a document from a published template. Every field the
// template declares as required must be present in the data.
func (svc *Service) Generate(ctx context.Context, ni NewInstance, generatedByID string) (Instance, error) {
	tmpl, err := svc.repo.GetTemplate(ctx, ni.TemplateID)
	if err != nil {
		return Instance{}, err
	}
	return svc.generate(ctx, tmpl, ni.Title, ni.ProjectID, ni.Data, generatedByID)
}

// GenerateByType renders a document from the currently published template
// of the given type.
func (svc *Service) GenerateByType(ctx context.Context, docType, title, projectID string, data map[string]interface{}, generatedByID string) (Instance, error) {
	tmpl, err := svc.repo.GetPublishedTemplate(ctx, docType)
	if err != nil {
		return Instance{}, err
	}
	return svc.generate(ctx, tmpl, title, projectID, data, generatedByID)
}

func (svc *Service) generate(ctx context.Context, tmpl Template, title, projectID string, data map[string]interface{}, generatedByID string) (Instance, error) {
	if !tmpl.IsPublished() {
		return Instance{}, core.NewValidationError(ErrNotPublished, core.FieldError{
			Field: "template_id", Error: ErrNotPublished.Error(),
		})
	}
	var missing []core.FieldError
	for _, field := range tmpl.RequiredFields {
		if _, ok := data[field]; !ok {
			missing = append(missing, core.FieldError{Field: "data", Error: "missing required field: " + field})
		}
	}
	if len(missing) > 0 {
		return Instance{}, core.NewValidationError(nil, missing...)
	}

	html, err := render(tmpl, title, data)
	if err != nil {
		return Instance{}, err
	}

	now := time.Now()
	inst := Instance{
		ID:              uuid.New().String(),
		TemplateID:      tmpl.ID,
		TemplateVersion: tmpl.Version,
		DocType:         tmpl.DocType,
		Title:           title,
		ProjectID:       projectID,
		Data:            data,
		RenderedHTML:    html,
		Status:          InstanceGenerated,
		GeneratedByID:   generatedByID,
		GeneratedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = svc.repo.CreateInstance(ctx, &inst); err != nil {
		return Instance{}, errors.Wrap(err, "creating document instance")
	}
	return inst, nil
}

func (svc *Service) QueryInstances(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Instance, error) {
	filter.Clean()
	return svc.repo.QueryInstances(ctx, filter, ordering)
}

func (svc *Service) GetInstance(ctx context.Context, id string) (Instance, error) {
	return svc.repo.GetInstance(ctx, id)
}

func (svc *Service) MarkSigned(ctx context.Context, id string) (Instance, error) {
	inst, err := svc.repo.GetInstance(ctx, id)
	if err != nil {
		return Instance{}, err
	}
	if inst.Status != InstanceGenerated {
		return Instance{}, core.NewValidationError(nil, core.FieldError{
			Field: "status", Error: "only generated documents can be marked signed",
		})
	}
	now := time.Now()
	inst.Status = InstanceSigned
	inst.SignedAt = now
	inst.UpdatedAt = now
	if err = svc.repo.UpdateInstance(ctx, &inst); err != nil {
		return Instance{}, errors.Wrap(err, "signing document instance")
	}
	return inst, nil
}

func (svc *Service) ArchiveInstance(ctx context.Context, id string) (Instance, error) {
	inst, err := svc.repo.GetInstance(ctx, id)
	if err != nil {
		return Instance{}, err
	}
	inst.Status = InstanceArchived
	inst.UpdatedAt = time.Now()
	if err = svc.repo.UpdateInstance(ctx, &inst); err != nil {
		return Instance{}, errors.Wrap(err, "archiving document instance")
	}
	return inst, nil
}

func (svc *Service) DeleteInstances(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteInstancesByID(ctx, ids)
	return err
}
