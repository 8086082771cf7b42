package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/handover"
)

type handoverRow struct {
	ID                   string      `db:"id"`
	ProjectID            string      `db:"project_id"`
	Checklist            []byte      `db:"checklist"`
	SectionNotes         []byte      `db:"section_notes"`
	CompletionPercentage float64     `db:"completion_percentage"`
	GoNoGoDecision       string      `db:"go_no_go_decision"`
	DecisionNotes        string      `db:"decision_notes"`
	ReviewedByID         null.String `db:"reviewed_by_id"`
	ReviewedAt           null.Time   `db:"reviewed_at"`
	DocumentID           null.String `db:"document_id"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func (r handoverRow) toHandover() (handover.Handover, error) {
	h := handover.Handover{
		ID:                   r.ID,
		ProjectID:            r.ProjectID,
		CompletionPercentage: r.CompletionPercentage,
		GoNoGoDecision:       r.GoNoGoDecision,
		DecisionNotes:        r.DecisionNotes,
		ReviewedByID:         r.ReviewedByID.String,
		ReviewedAt:           r.ReviewedAt.Time,
		DocumentID:           r.DocumentID.String,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if err := fromJSON(r.Checklist, &h.Checklist); err != nil {
		return h, err
	}
	return h, fromJSON(r.SectionNotes, &h.SectionNotes)
}

func newHandoverRow(h handover.Handover) handoverRow {
	return handoverRow{
		ID:                   h.ID,
		ProjectID:            h.ProjectID,
		Checklist:            mustJSON(h.Checklist),
		SectionNotes:         mustJSON(h.SectionNotes),
		CompletionPercentage: h.CompletionPercentage,
		GoNoGoDecision:       h.GoNoGoDecision,
		DecisionNotes:        h.DecisionNotes,
		ReviewedByID:         null.NewString(h.ReviewedByID, h.ReviewedByID != ""),
		ReviewedAt:           null.NewTime(h.ReviewedAt, !h.ReviewedAt.IsZero()),
		DocumentID:           null.NewString(h.DocumentID, h.DocumentID != ""),
		CreatedAt:            h.CreatedAt,
		UpdatedAt:            h.UpdatedAt,
	}
}

const handoverCols = `id, project_id, checklist, section_notes, completion_percentage,
	go_no_go_decision, decision_notes, reviewed_by_id, reviewed_at, document_id,
	created_at, updated_at`

type handoverRepository struct {
	db core.DB
}

var _ handover.Repository = (*handoverRepository)(nil)

func NewHandoverRepository(db core.DB) handover.Repository {
	return &handoverRepository{db: db}
}

func (repo *handoverRepository) CreateHandover(ctx context.Context, h *handover.Handover, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO pilot_handover (` + handoverCols + `)
		VALUES (:id, :project_id, :checklist, :section_notes, :completion_percentage,
			:go_no_go_decision, :decision_notes, :reviewed_by_id, :reviewed_at, :document_id,
			:created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newHandoverRow(*h))
	return errors.Wrap(err, "creating handover")
}

func (repo *handoverRepository) QueryHandovers(ctx context.Context, filter handover.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]handover.Handover, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ProjectID != "" {
		conds = append(conds, "project_id = "+arg(filter.ProjectID))
	}
	if filter.Decision != "" {
		conds = append(conds, "go_no_go_decision = "+arg(filter.Decision))
	}

	q := `SELECT ` + handoverCols + ` FROM pilot_handover` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []handoverRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying handovers")
	}
	handovers := make([]handover.Handover, len(rows))
	for i, row := range rows {
		h, err := row.toHandover()
		if err != nil {
			return nil, errors.Wrap(err, "decoding handover")
		}
		handovers[i] = h
	}
	return handovers, nil
}

func (repo *handoverRepository) GetHandover(ctx context.Context, id string, exec ...core.DBExecutor) (handover.Handover, error) {
	ex := executor(repo.db, exec)
	var row handoverRow
	if err := ex.GetContext(ctx, &row, `SELECT `+handoverCols+` FROM pilot_handover WHERE id = $1`, id); err != nil {
		return handover.Handover{}, trapNoRowsErr(err, handover.ErrNotFound, "getting handover")
	}
	h, err := row.toHandover()
	return h, errors.Wrap(err, "decoding handover")
}

func (repo *handoverRepository) GetHandoverByProjectID(ctx context.Context, projectID string, exec ...core.DBExecutor) (handover.Handover, error) {
	ex := executor(repo.db, exec)
	var row handoverRow
	if err := ex.GetContext(ctx, &row, `SELECT `+handoverCols+` FROM pilot_handover WHERE project_id = $1`, projectID); err != nil {
		return handover.Handover{}, trapNoRowsErr(err, handover.ErrNotFound, "getting handover by project")
	}
	h, err := row.toHandover()
	return h, errors.Wrap(err, "decoding handover")
}

func (repo *handoverRepository) UpdateHandover(ctx context.Context, h *handover.Handover, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE pilot_handover
		SET checklist = :checklist, section_notes = :section_notes,
			completion_percentage = :completion_percentage,
			go_no_go_decision = :go_no_go_decision, decision_notes = :decision_notes,
			reviewed_by_id = :reviewed_by_id, reviewed_at = :reviewed_at,
			document_id = :document_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newHandoverRow(*h))
	if err != nil {
		return errors.Wrap(err, "updating handover")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return handover.ErrNotFound
	}
	return nil
}

func (repo *handoverRepository) DeleteHandoversByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "pilot_handover", ids)
}
