package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/change"
)

type changeRequestRow struct {
	ID            string `db:"id"`
	RequestNumber string `db:"request_number"`
	ProjectID     string `db:"project_id"`
	RequestedByID string `db:"requested_by_id"`
	Title         string `db:"title"`
	Description   string `db:"description"`
	Reason        string `db:"reason"`
	Priority      string `db:"priority"`
	Status        string `db:"status"`

	ScheduleImpact string      `db:"schedule_impact"`
	CostImpact     string      `db:"cost_impact"`
	ScopeImpact    string      `db:"scope_impact"`
	AssessedByID   null.String `db:"assessed_by_id"`

	Decision      string    `db:"decision"`
	DecisionNotes string    `db:"decision_notes"`
	DecisionAt    null.Time `db:"decision_at"`

	ClientSigName    string    `db:"client_sig_name"`
	ClientSigTitle   string    `db:"client_sig_title"`
	ClientSignedAt   null.Time `db:"client_signed_at"`
	ProviderSigName  string    `db:"provider_sig_name"`
	ProviderSigTitle string    `db:"provider_sig_title"`
	ProviderSignedAt null.Time `db:"provider_signed_at"`

	DocumentID null.String `db:"document_id"`

	SubmittedAt   null.Time `db:"submitted_at"`
	ImplementedAt null.Time `db:"implemented_at"`
	ClosedAt      null.Time `db:"closed_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r changeRequestRow) toRequest() change.Request {
	return change.Request{
		ID:            r.ID,
		RequestNumber: r.RequestNumber,
		ProjectID:     r.ProjectID,
		RequestedByID: r.RequestedByID,
		Title:         r.Title,
		Description:   r.Description,
		Reason:        r.Reason,
		Priority:      r.Priority,
		Status:        r.Status,
		Impact: change.ImpactAssessment{
			ScheduleImpact: r.ScheduleImpact,
			CostImpact:     r.CostImpact,
			ScopeImpact:    r.ScopeImpact,
			AssessedByID:   r.AssessedByID.String,
		},
		Decision:          r.Decision,
		DecisionNotes:     r.DecisionNotes,
		DecisionAt:        r.DecisionAt.Time,
		ClientSignature:   change.Signature{Name: r.ClientSigName, Title: r.ClientSigTitle, SignedAt: r.ClientSignedAt.Time},
		ProviderSignature: change.Signature{Name: r.ProviderSigName, Title: r.ProviderSigTitle, SignedAt: r.ProviderSignedAt.Time},
		DocumentID:        r.DocumentID.String,
		SubmittedAt:       r.SubmittedAt.Time,
		ImplementedAt:     r.ImplementedAt.Time,
		ClosedAt:          r.ClosedAt.Time,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newChangeRequestRow(req change.Request) changeRequestRow {
	nullTime := func(t time.Time) null.Time { return null.NewTime(t, !t.IsZero()) }
	return changeRequestRow{
		ID:            req.ID,
		RequestNumber: req.RequestNumber,
		ProjectID:     req.ProjectID,
		RequestedByID: req.RequestedByID,
		Title:         req.Title,
		Description:   req.Description,
		Reason:        req.Reason,
		Priority:      req.Priority,
		Status:        req.Status,

		ScheduleImpact: req.Impact.ScheduleImpact,
		CostImpact:     req.Impact.CostImpact,
		ScopeImpact:    req.Impact.ScopeImpact,
		AssessedByID:   null.NewString(req.Impact.AssessedByID, req.Impact.AssessedByID != ""),

		Decision:      req.Decision,
		DecisionNotes: req.DecisionNotes,
		DecisionAt:    nullTime(req.DecisionAt),

		ClientSigName:    req.ClientSignature.Name,
		ClientSigTitle:   req.ClientSignature.Title,
		ClientSignedAt:   nullTime(req.ClientSignature.SignedAt),
		ProviderSigName:  req.ProviderSignature.Name,
		ProviderSigTitle: req.ProviderSignature.Title,
		ProviderSignedAt: nullTime(req.ProviderSignature.SignedAt),

		DocumentID: null.NewString(req.DocumentID, req.DocumentID != ""),

		SubmittedAt:   nullTime(req.SubmittedAt),
		ImplementedAt: nullTime(req.ImplementedAt),
		ClosedAt:      nullTime(req.ClosedAt),
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
}

const changeRequestCols = `id, request_number, project_id, requested_by_id, title, description,
	reason, priority, status, schedule_impact, cost_impact, scope_impact, assessed_by_id,
	decision, decision_notes, decision_at, client_sig_name, client_sig_title, client_signed_at,
	provider_sig_name, provider_sig_title, provider_signed_at, document_id, submitted_at,
	implemented_at, closed_at, created_at, updated_at`

type changeRepository struct {
	db core.DB
}

var _ change.Repository = (*changeRepository)(nil)

func NewChangeRepository(db core.DB) change.Repository {
	return &changeRepository{db: db}
}

// NextSequence claims the next per-year request number. The row lock keeps
// concurrent submissions from claiming the same number.
func (repo *changeRepository) NextSequence(ctx context.Context, year int, exec ...core.DBExecutor) (int, error) {
	ex := executor(repo.db, exec)
	var seq int
	q := `
		INSERT INTO change_request_sequence (year, last_seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = change_request_sequence.last_seq + 1
		RETURNING last_seq`
	if err := ex.GetContext(ctx, &seq, q, year); err != nil {
		return 0, errors.Wrap(err, "claiming request sequence")
	}
	return seq, nil
}

func (repo *changeRepository) CreateRequest(ctx context.Context, req *change.Request, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO change_request (` + changeRequestCols + `)
		VALUES (:id, :request_number, :project_id, :requested_by_id, :title, :description,
			:reason, :priority, :status, :schedule_impact, :cost_impact, :scope_impact,
			:assessed_by_id, :decision, :decision_notes, :decision_at, :client_sig_name,
			:client_sig_title, :client_signed_at, :provider_sig_name, :provider_sig_title,
			:provider_signed_at, :document_id, :submitted_at, :implemented_at, :closed_at,
			:created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newChangeRequestRow(*req))
	return errors.Wrap(err, "creating change request")
}

func (repo *changeRepository) QueryRequests(ctx context.Context, filter change.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]change.Request, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(request_number ILIKE %[1]s OR title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Priority != "" {
		conds = append(conds, "priority = "+arg(filter.Priority))
	}
	if filter.ProjectID != "" {
		conds = append(conds, "project_id = "+arg(filter.ProjectID))
	}
	if len(filter.Statuses) > 0 {
		ph, inargs := inArgs(filter.Statuses, len(args)+1)
		args = append(args, inargs...)
		conds = append(conds, "status IN "+ph)
	}

	q := `SELECT ` + changeRequestCols + ` FROM change_request` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []changeRequestRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying change requests")
	}
	reqs := make([]change.Request, len(rows))
	for i, row := range rows {
		reqs[i] = row.toRequest()
	}
	return reqs, nil
}

func (repo *changeRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (change.Request, error) {
	ex := executor(repo.db, exec)
	var row changeRequestRow
	if err := ex.GetContext(ctx, &row, `SELECT `+changeRequestCols+` FROM change_request WHERE id = $1`, id); err != nil {
		return change.Request{}, trapNoRowsErr(err, change.ErrNotFound, "getting change request")
	}
	return row.toRequest(), nil
}

func (repo *changeRepository) UpdateRequest(ctx context.Context, req *change.Request, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE change_request
		SET title = :title, description = :description, reason = :reason, priority = :priority,
			status = :status, schedule_impact = :schedule_impact, cost_impact = :cost_impact,
			scope_impact = :scope_impact, assessed_by_id = :assessed_by_id, decision = :decision,
			decision_notes = :decision_notes, decision_at = :decision_at,
			client_sig_name = :client_sig_name, client_sig_title = :client_sig_title,
			client_signed_at = :client_signed_at, provider_sig_name = :provider_sig_name,
			provider_sig_title = :provider_sig_title, provider_signed_at = :provider_signed_at,
			document_id = :document_id, submitted_at = :submitted_at,
			implemented_at = :implemented_at, closed_at = :closed_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newChangeRequestRow(*req))
	if err != nil {
		return errors.Wrap(err, "updating change request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return change.ErrNotFound
	}
	return nil
}

func (repo *changeRepository) DeleteRequestsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "change_request", ids)
}

func (repo *changeRepository) CountByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	ex := executor(repo.db, exec)
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := ex.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM change_request GROUP BY status`); err != nil {
		return nil, errors.Wrap(err, "counting change requests")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
