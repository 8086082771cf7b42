package acceptance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("project already has an acceptance record")
	ErrAlreadySigned = errors.New("party has already signed")
)

type Repository interface {
	CreateAcceptance(ctx context.Context, a *Acceptance, exec ...core.DBExecutor) error
	QueryAcceptances(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Acceptance, error)
	GetAcceptance(ctx context.Context, id string, exec ...core.DBExecutor) (Acceptance, error)
	GetAcceptanceByProjectID(ctx context.Context, projectID string, exec ...core.DBExecutor) (Acceptance, error)
	UpdateAcceptance(ctx context.Context, a *Acceptance, exec ...core.DBExecutor) error
	DeleteAcceptancesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
}

type ServiceInterface interface {
	Create(ctx context.Context, na NewAcceptance) (Acceptance, error)
	Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Acceptance, error)
	Get(ctx context.Context, id string) (Acceptance, error)
	GetByProjectID(ctx context.Context, projectID string) (Acceptance, error)
	Sign(ctx context.Context, id string, ns NewSignature) (Acceptance, error)
	AttachDocument(ctx context.Context, id, documentID string) (Acceptance, error)
	Delete(ctx context.Context, ids ...string) error
}

type Service struct {
	db   core.DB
	repo Repository
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Create(ctx context.Context, na NewAcceptance) (Acceptance, error) {
	if _, err := svc.repo.GetAcceptanceByProjectID(ctx, na.ProjectID); err == nil {
		return Acceptance{}, core.NewValidationError(ErrAlreadyExists, core.FieldError{
			Field: "project_id", Error: ErrAlreadyExists.Error(),
		})
	} else if !errors.Is(err, ErrNotFound) {
		return Acceptance{}, err
	}

	now := time.Now()
	a := Acceptance{
		ID:         uuid.New().String(),
		ProjectID:  na.ProjectID,
		HandoverID: na.HandoverID,
		Outcome:    na.Outcome,
		Conditions: na.Conditions,
		Feedback:   na.Feedback,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := svc.repo.CreateAcceptance(ctx, &a); err != nil {
		return Acceptance{}, errors.Wrap(err, "creating acceptance")
	}
	return a, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Acceptance, error) {
	return svc.repo.QueryAcceptances(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Acceptance, error) {
	return svc.repo.GetAcceptance(ctx, id)
}

func (svc *Service) GetByProjectID(ctx context.Context, projectID string) (Acceptance, error) {
	return svc.repo.GetAcceptanceByProjectID(ctx, projectID)
}

func (svc *Service) Sign(ctx context.Context, id string, ns NewSignature) (Acceptance, error) {
	a, err := svc.repo.GetAcceptance(ctx, id)
	if err != nil {
		return Acceptance{}, err
	}
	sig := Signature{Name: ns.Name, Title: ns.Title, SignedAt: time.Now()}
	switch ns.Party {
	case PartyClient:
		if a.ClientSignature.IsSigned() {
			return Acceptance{}, ErrAlreadySigned
		}
		a.ClientSignature = sig
	case PartyProvider:
		if a.ProviderSignature.IsSigned() {
			return Acceptance{}, ErrAlreadySigned
		}
		a.ProviderSignature = sig
	}
	a.UpdatedAt = sig.SignedAt
	if err = svc.repo.UpdateAcceptance(ctx, &a); err != nil {
		return Acceptance{}, errors.Wrap(err, "signing acceptance")
	}
	return a, nil
}

// AttachDocument links a generated acceptance certificate to the record.
func (svc *Service) AttachDocument(ctx context.Context, id, documentID string) (Acceptance, error) {
	a, err := svc.repo.GetAcceptance(ctx, id)
	if err != nil {
		return Acceptance{}, err
	}
	a.DocumentID = documentID
	a.UpdatedAt = time.Now()
	if err = svc.repo.UpdateAcceptance(ctx, &a); err != nil {
		return Acceptance{}, errors.Wrap(err, "attaching acceptance certificate")
	}
	return a, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAcceptancesByID(ctx, ids)
	return err
}
