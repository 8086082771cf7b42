package project

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateProject(ctx context.Context, proj *Project, exec ...core.DBExecutor) error
	QueryProjects(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Project, error)
	GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (Project, error)
	UpdateProject(ctx context.Context, proj *Project, exec ...core.DBExecutor) error
	DeleteProjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

	CreateTransition(ctx context.Context, tr *StatusTransition, exec ...core.DBExecutor) error
	QueryTransitions(ctx context.Context, projectID string, exec ...core.DBExecutor) ([]StatusTransition, error)

	NextCodeSequence(ctx context.Context, year int, exec ...core.DBExecutor) (int, error)
	CountByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error)
	StatsByServiceType(ctx context.Context, exec ...core.DBExecutor) (map[string]ServiceTypeStats, error)
}

type ServiceInterface interface {
	Create(ctx context.Context, np NewProject) (Project, error)
	Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Update(ctx context.Context, id string, up UpdateProject) (Project, error)
	Delete(ctx context.Context, ids ...string) error

	Transition(ctx context.Context, id string, nt NewTransition, changedByID string) (Project, error)
	History(ctx context.Context, id string) ([]StatusTransition, error)
	GetStatistics(ctx context.Context) (Statistics, error)
}

type Service struct {
	db   core.DB
	repo Repository
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewProject) (Project, error) {
	now := time.Now()
	proj := Project{
		ID:                 uuid.New().String(),
		ClientID:           np.ClientID,
		ClientContactID:    np.ClientContactID,
		Name:               np.Name,
		Description:        np.Description,
		Objectives:         np.Objectives,
		ServiceType:        np.ServiceType,
		Status:             StatusLead,
		Priority:           np.Priority,
		RiskLevel:          np.RiskLevel,
		ProgressPercentage: ProgressFor(StatusLead, 0),
		EstimatedHours:     np.EstimatedHours,
		Budget:             np.Budget,
		StartDate:          np.StartDate,
		TargetEndDate:      np.TargetEndDate,
		ProjectManagerID:   np.ProjectManagerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	// the code sequence is claimed inside the tx so codes stay gapless per year
	err := svc.db.Transaction(ctx, func(tx core.DBExecutor) error {
		seq, err := svc.repo.NextCodeSequence(ctx, now.Year(), tx)
		if err != nil {
			return err
		}
		proj.Code = MakeProjectCode(now.Year(), seq)
		return svc.repo.CreateProject(ctx, &proj, tx)
	})
	if err != nil {
		return Project{}, errors.Wrap(err, "creating project")
	}
	return proj, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Project, error) {
	filter.Clean()
	return svc.repo.QueryProjects(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, up UpdateProject) (Project, error) {
	proj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if up.Name != "" {
		proj.Name = up.Name
	}
	if up.ServiceType != "" {
		proj.ServiceType = up.ServiceType
	}
	if up.Priority != "" {
		proj.Priority = up.Priority
	}
	if up.RiskLevel != "" {
		proj.RiskLevel = up.RiskLevel
	}
	if up.EstimatedHours > 0 {
		proj.EstimatedHours = up.EstimatedHours
	}
	if up.ActualHours > 0 {
		proj.ActualHours = up.ActualHours
	}
	if up.ClientContactID != "" {
		proj.ClientContactID = up.ClientContactID
	}
	if !up.StartDate.IsZero() {
		proj.StartDate = up.StartDate
	}
	if !up.TargetEndDate.IsZero() {
		proj.TargetEndDate = up.TargetEndDate
	}
	proj.Description = up.Description
	proj.Objectives = up.Objectives
	proj.Budget = up.Budget
	proj.ProjectManagerID = up.ProjectManagerID
	proj.UpdatedAt = time.Now()

	if err = svc.repo.UpdateProject(ctx, &proj); err != nil {
		return Project{}, errors.Wrap(err, "updating project")
	}
	return proj, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteProjectsByID(ctx, ids)
	return err
}

// Transition moves a project to a new status, updates its progress and
// writes an audit record, all in one transaction.
func (svc *Service) Transition(ctx context.Context, id string, nt NewTransition, changedByID string) (Project, error) {
	proj, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if err = checkTransition(proj.Status, nt.Status); err != nil {
		return Project{}, err
	}

	now := time.Now()
	tr := StatusTransition{
		ID:          uuid.New().String(),
		ProjectID:   proj.ID,
		FromStatus:  proj.Status,
		ToStatus:    nt.Status,
		Reason:      nt.Reason,
		Notes:       nt.Notes,
		ChangedByID: changedByID,
		CreatedAt:   now,
	}
	proj.Status = nt.Status
	proj.ProgressPercentage = ProgressFor(nt.Status, proj.ProgressPercentage)
	if nt.Status == StatusCompleted {
		proj.ActualEndDate = now
	}
	proj.UpdatedAt = now

	err = svc.db.Transaction(ctx, func(tx core.DBExecutor) error {
		if err := svc.repo.UpdateProject(ctx, &proj, tx); err != nil {
			return err
		}
		return svc.repo.CreateTransition(ctx, &tr, tx)
	})
	if err != nil {
		return Project{}, errors.Wrap(err, "transitioning project")
	}
	return proj, nil
}

func (svc *Service) History(ctx context.Context, id string) ([]StatusTransition, error) {
	if _, err := svc.repo.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.QueryTransitions(ctx, id)
}

func (svc *Service) GetStatistics(ctx context.Context) (Statistics, error) {
	counts, err := svc.repo.CountByStatus(ctx)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "counting projects")
	}
	stats := Statistics{ByStatus: counts}
	for status, n := range counts {
		stats.Total += n
		switch status {
		case StatusOnHold:
			stats.OnHold += n
		case StatusCompleted, StatusLead:
		default:
			stats.Active += n
		}
	}

	byType, err := svc.repo.StatsByServiceType(ctx)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "rolling up projects by service type")
	}
	stats.ByServiceType = byType
	return stats, nil
}
