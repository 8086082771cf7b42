package handover

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("project already has a handover checklist")
	ErrAlreadyDecided = errors.New("go/no-go decision already recorded")
	ErrIncomplete     = errors.New("checklist must be fully complete before approval")
)

type Repository interface {
	CreateHandover(ctx context.Context, h *Handover, exec ...core.DBExecutor) error
	QueryHandovers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Handover, error)
	GetHandover(ctx context.Context, id string, exec ...core.DBExecutor) (Handover, error)
	GetHandoverByProjectID(ctx context.Context, projectID string, exec ...core.DBExecutor) (Handover, error)
	UpdateHandover(ctx context.Context, h *Handover, exec ...core.DBExecutor) error
	DeleteHandoversByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
}

type ServiceInterface interface {
	Create(ctx context.Context, nh NewHandover) (Handover, error)
	Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Handover, error)
	Get(ctx context.Context, id string) (Handover, error)
	GetByProjectID(ctx context.Context, projectID string) (Handover, error)
	Delete(ctx context.Context, ids ...string) error

	UpdateChecklist(ctx context.Context, id string, uc UpdateChecklist) (Handover, error)
	RecordDecision(ctx context.Context, id string, nd NewDecision, reviewedByID string) (Handover, error)
	AttachDocument(ctx context.Context, id, documentID string) (Handover, error)
	RequestReview(ctx context.Context, id, projectName string, notify ...mail.Address) error
}

type Service struct {
	db      core.DB
	repo    Repository
	mailSvc core.EmailService
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{db: db, repo: repo, mailSvc: mailSvc}
}

func (svc *Service) Create(ctx context.Context, nh NewHandover) (Handover, error) {
	if _, err := svc.repo.GetHandoverByProjectID(ctx, nh.ProjectID); err == nil {
		return Handover{}, core.NewValidationError(ErrAlreadyExists, core.FieldError{
			Field: "project_id", Error: ErrAlreadyExists.Error(),
		})
	} else if !errors.Is(err, ErrNotFound) {
		return Handover{}, err
	}

	now := time.Now()
	h := Handover{
		ID:             uuid.New().String(),
		ProjectID:      nh.ProjectID,
		Checklist:      NewChecklist(),
		GoNoGoDecision: DecisionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := svc.repo.CreateHandover(ctx, &h); err != nil {
		return Handover{}, errors.Wrap(err, "creating handover")
	}
	return h, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Handover, error) {
	return svc.repo.QueryHandovers(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Handover, error) {
	return svc.repo.GetHandover(ctx, id)
}

func (svc *Service) GetByProjectID(ctx context.Context, projectID string) (Handover, error) {
	return svc.repo.GetHandoverByProjectID(ctx, projectID)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteHandoversByID(ctx, ids)
	return err
}

func (svc *Service) UpdateChecklist(ctx context.Context, id string, uc UpdateChecklist) (Handover, error) {
	h, err := svc.repo.GetHandover(ctx, id)
	if err != nil {
		return Handover{}, err
	}
	if h.GoNoGoDecision == DecisionApproved {
		return Handover{}, core.NewValidationError(nil, core.FieldError{
			Field: "items", Error: "checklist is frozen after approval",
		})
	}
	if h.Checklist == nil {
		h.Checklist = NewChecklist()
	}
	for section, items := range uc.Items {
		for item, checked := range items {
			h.Checklist[section][item] = checked
		}
	}
	if uc.SectionNotes != nil {
		if h.SectionNotes == nil {
			h.SectionNotes = make(map[string]string, len(uc.SectionNotes))
		}
		for section, note := range uc.SectionNotes {
			h.SectionNotes[section] = note
		}
	}
	h.CompletionPercentage = h.Checklist.CompletionPercentage()
	h.UpdatedAt = time.Now()

	if err = svc.repo.UpdateHandover(ctx, &h); err != nil {
		return Handover{}, errors.Wrap(err, "updating handover checklist")
	}
	return h, nil
}

// RecordDecision records the go/no-go review. Approval requires the whole
// checklist to be done; a hold can be recorded at any completion level.
func (svc *Service) RecordDecision(ctx context.Context, id string, nd NewDecision, reviewedByID string) (Handover, error) {
	h, err := svc.repo.GetHandover(ctx, id)
	if err != nil {
		return Handover{}, err
	}
	if h.GoNoGoDecision == DecisionApproved {
		return Handover{}, ErrAlreadyDecided
	}
	if nd.Decision == DecisionApproved && !h.Checklist.IsComplete() {
		return Handover{}, core.NewValidationError(ErrIncomplete, core.FieldError{
			Field: "decision", Error: ErrIncomplete.Error(),
		})
	}
	now := time.Now()
	h.GoNoGoDecision = nd.Decision
	h.DecisionNotes = nd.Notes
	h.ReviewedByID = reviewedByID
	h.ReviewedAt = now
	h.UpdatedAt = now

	if err = svc.repo.UpdateHandover(ctx, &h); err != nil {
		return Handover{}, errors.Wrap(err, "recording handover decision")
	}
	return h, nil
}

// AttachDocument links a generated handover document to the checklist.
func (svc *Service) AttachDocument(ctx context.Context, id, documentID string) (Handover, error) {
	h, err := svc.repo.GetHandover(ctx, id)
	if err != nil {
		return Handover{}, err
	}
	h.DocumentID = documentID
	h.UpdatedAt = time.Now()
	if err = svc.repo.UpdateHandover(ctx, &h); err != nil {
		return Handover{}, errors.Wrap(err, "attaching handover document")
	}
	return h, nil
}

// RequestReview notifies reviewers that the checklist is ready.
func (svc *Service) RequestReview(ctx context.Context, id, projectName string, notify ...mail.Address) error {
	h, err := svc.repo.GetHandover(ctx, id)
	if err != nil {
		return err
	}
	if len(notify) == 0 {
		return nil
	}
	msgs := make([]*core.EmailMessage, len(notify))
	for i, addr := range notify {
		msgs[i] = &core.EmailMessage{
			To:           []mail.Address{addr},
			Subject:      "Pilot handover ready for review: " + projectName,
			TemplateName: "handover-review",
			TemplateData: struct {
				ContactName          string
				ProjectName          string
				CompletionPercentage float64
				GoNoGoDecision       string
				HandoverID           string
			}{addr.Name, projectName, h.CompletionPercentage, h.GoNoGoDecision, h.ID},
		}
	}
	svc.mailSvc.SendMessages(msgs...)
	return nil
}
