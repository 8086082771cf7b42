package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/project"
)

type projectRow struct {
	ID                 string      `db:"id"`
	Code               string      `db:"code"`
	ClientID           string      `db:"client_id"`
	ClientContactID    null.String `db:"client_contact_id"`
	Name               string      `db:"name"`
	Description        string      `db:"description"`
	Objectives         string      `db:"objectives"`
	ServiceType        string      `db:"service_type"`
	Status             string      `db:"status"`
	Priority           string      `db:"priority"`
	RiskLevel          string      `db:"risk_level"`
	ProgressPercentage int         `db:"progress_percentage"`
	EstimatedHours     float64     `db:"estimated_hours"`
	ActualHours        float64     `db:"actual_hours"`
	Budget             string      `db:"budget"`
	StartDate          null.Time   `db:"start_date"`
	TargetEndDate      null.Time   `db:"target_end_date"`
	ActualEndDate      null.Time   `db:"actual_end_date"`
	ProjectManagerID   null.String `db:"project_manager_id"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (r projectRow) toProject() project.Project {
	return project.Project{
		ID:                 r.ID,
		Code:               r.Code,
		ClientID:           r.ClientID,
		ClientContactID:    r.ClientContactID.String,
		Name:               r.Name,
		Description:        r.Description,
		Objectives:         r.Objectives,
		ServiceType:        r.ServiceType,
		Status:             r.Status,
		Priority:           r.Priority,
		RiskLevel:          r.RiskLevel,
		ProgressPercentage: r.ProgressPercentage,
		EstimatedHours:     r.EstimatedHours,
		ActualHours:        r.ActualHours,
		Budget:             r.Budget,
		StartDate:          r.StartDate.Time,
		TargetEndDate:      r.TargetEndDate.Time,
		ActualEndDate:      r.ActualEndDate.Time,
		ProjectManagerID:   r.ProjectManagerID.String,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newProjectRow(p project.Project) projectRow {
	return projectRow{
		ID:                 p.ID,
		Code:               p.Code,
		ClientID:           p.ClientID,
		ClientContactID:    null.NewString(p.ClientContactID, p.ClientContactID != ""),
		Name:               p.Name,
		Description:        p.Description,
		Objectives:         p.Objectives,
		ServiceType:        p.ServiceType,
		Status:             p.Status,
		Priority:           p.Priority,
		RiskLevel:          p.RiskLevel,
		ProgressPercentage: p.ProgressPercentage,
		EstimatedHours:     p.EstimatedHours,
		ActualHours:        p.ActualHours,
		Budget:             p.Budget,
		StartDate:          null.NewTime(p.StartDate, !p.StartDate.IsZero()),
		TargetEndDate:      null.NewTime(p.TargetEndDate, !p.TargetEndDate.IsZero()),
		ActualEndDate:      null.NewTime(p.ActualEndDate, !p.ActualEndDate.IsZero()),
		ProjectManagerID:   null.NewString(p.ProjectManagerID, p.ProjectManagerID != ""),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

const projectCols = `id, code, client_id, client_contact_id, name, description, objectives,
	service_type, status, priority, risk_level, progress_percentage, estimated_hours, actual_hours,
	budget, start_date, target_end_date, actual_end_date, project_manager_id, created_at, updated_at`

type transitionRow struct {
	ID          string      `db:"id"`
	ProjectID   string      `db:"project_id"`
	FromStatus  string      `db:"from_status"`
	ToStatus    string      `db:"to_status"`
	Reason      string      `db:"reason"`
	Notes       string      `db:"notes"`
	ChangedByID null.String `db:"changed_by_id"`
	CreatedAt   time.Time   `db:"created_at"`
}

const transitionCols = `id, project_id, from_status, to_status, reason, notes, changed_by_id, created_at`

type projectRepository struct {
	db core.DB
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db core.DB) project.Repository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) CreateProject(ctx context.Context, proj *project.Project, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO project (` + projectCols + `)
		VALUES (:id, :code, :client_id, :client_contact_id, :name, :description, :objectives,
			:service_type, :status, :priority, :risk_level, :progress_percentage, :estimated_hours, :actual_hours,
			:budget, :start_date, :target_end_date, :actual_end_date, :project_manager_id, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newProjectRow(*proj))
	return errors.Wrap(err, "creating project")
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter project.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]project.Project, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.ServiceType != "" {
		conds = append(conds, "service_type = "+arg(filter.ServiceType))
	}
	if filter.ClientID != "" {
		conds = append(conds, "client_id = "+arg(filter.ClientID))
	}

	q := `SELECT ` + projectCols + ` FROM project` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []projectRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	projects := make([]project.Project, len(rows))
	for i, row := range rows {
		projects[i] = row.toProject()
	}
	return projects, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (project.Project, error) {
	ex := executor(repo.db, exec)
	var row projectRow
	if err := ex.GetContext(ctx, &row, `SELECT `+projectCols+` FROM project WHERE id = $1`, id); err != nil {
		return project.Project{}, trapNoRowsErr(err, project.ErrNotFound, "getting project")
	}
	return row.toProject(), nil
}

func (repo *projectRepository) UpdateProject(ctx context.Context, proj *project.Project, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE project
		SET name = :name, description = :description, objectives = :objectives,
			service_type = :service_type, status = :status, priority = :priority,
			risk_level = :risk_level, progress_percentage = :progress_percentage,
			estimated_hours = :estimated_hours, actual_hours = :actual_hours, budget = :budget,
			client_contact_id = :client_contact_id, start_date = :start_date,
			target_end_date = :target_end_date, actual_end_date = :actual_end_date,
			project_manager_id = :project_manager_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newProjectRow(*proj))
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (repo *projectRepository) DeleteProjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "project", ids)
}

func (repo *projectRepository) CreateTransition(ctx context.Context, tr *project.StatusTransition, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	row := transitionRow{
		ID:          tr.ID,
		ProjectID:   tr.ProjectID,
		FromStatus:  tr.FromStatus,
		ToStatus:    tr.ToStatus,
		Reason:      tr.Reason,
		Notes:       tr.Notes,
		ChangedByID: null.NewString(tr.ChangedByID, tr.ChangedByID != ""),
		CreatedAt:   tr.CreatedAt,
	}
	q := `
		INSERT INTO project_status_transition (` + transitionCols + `)
		VALUES (:id, :project_id, :from_status, :to_status, :reason, :notes, :changed_by_id, :created_at)`
	_, err := sqlxNamedExec(ctx, ex, q, row)
	return errors.Wrap(err, "creating status transition")
}

func (repo *projectRepository) QueryTransitions(ctx context.Context, projectID string, exec ...core.DBExecutor) ([]project.StatusTransition, error) {
	ex := executor(repo.db, exec)
	var rows []transitionRow
	q := `SELECT ` + transitionCols + ` FROM project_status_transition WHERE project_id = $1 ORDER BY created_at DESC`
	if err := ex.SelectContext(ctx, &rows, q, projectID); err != nil {
		return nil, errors.Wrap(err, "querying status transitions")
	}
	transitions := make([]project.StatusTransition, len(rows))
	for i, row := range rows {
		transitions[i] = project.StatusTransition{
			ID:          row.ID,
			ProjectID:   row.ProjectID,
			FromStatus:  row.FromStatus,
			ToStatus:    row.ToStatus,
			Reason:      row.Reason,
			Notes:       row.Notes,
			ChangedByID: row.ChangedByID.String,
			CreatedAt:   row.CreatedAt,
		}
	}
	return transitions, nil
}

// NextCodeSequence claims the next per-year project code. The upsert keeps
// concurrent creates from claiming the same number.
func (repo *projectRepository) NextCodeSequence(ctx context.Context, year int, exec ...core.DBExecutor) (int, error) {
	ex := executor(repo.db, exec)
	var seq int
	q := `
		INSERT INTO project_code_sequence (year, last_seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = project_code_sequence.last_seq + 1
		RETURNING last_seq`
	if err := ex.GetContext(ctx, &seq, q, year); err != nil {
		return 0, errors.Wrap(err, "claiming project code sequence")
	}
	return seq, nil
}

func (repo *projectRepository) CountByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	ex := executor(repo.db, exec)
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := ex.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM project GROUP BY status`); err != nil {
		return nil, errors.Wrap(err, "counting projects")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (repo *projectRepository) StatsByServiceType(ctx context.Context, exec ...core.DBExecutor) (map[string]project.ServiceTypeStats, error) {
	ex := executor(repo.db, exec)
	var rows []struct {
		ServiceType    string  `db:"service_type"`
		Status         string  `db:"status"`
		Count          int     `db:"count"`
		ProgressSum    int     `db:"progress_sum"`
		EstimatedHours float64 `db:"estimated_hours"`
		ActualHours    float64 `db:"actual_hours"`
	}
	q := `
		SELECT service_type, status, COUNT(*) AS count,
			COALESCE(SUM(progress_percentage), 0) AS progress_sum,
			COALESCE(SUM(estimated_hours), 0) AS estimated_hours,
			COALESCE(SUM(actual_hours), 0) AS actual_hours
		FROM project
		GROUP BY service_type, status`
	if err := ex.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "rolling up projects by service type")
	}

	progressSums := make(map[string]int, len(rows))
	stats := make(map[string]project.ServiceTypeStats, len(rows))
	for _, row := range rows {
		st := stats[row.ServiceType]
		st.Total += row.Count
		switch row.Status {
		case project.StatusOnHold:
			st.OnHold += row.Count
		case project.StatusCompleted:
			st.Completed += row.Count
		case project.StatusLead:
		default:
			st.Active += row.Count
		}
		st.EstimatedHours += row.EstimatedHours
		st.ActualHours += row.ActualHours
		progressSums[row.ServiceType] += row.ProgressSum
		stats[row.ServiceType] = st
	}
	for serviceType, st := range stats {
		st.AvgProgress = float64(progressSums[serviceType]) / float64(st.Total)
		stats[serviceType] = st
	}
	return stats, nil
}
