package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/acceptance"
)

type acceptanceRow struct {
	ID         string      `db:"id"`
	ProjectID  string      `db:"project_id"`
	HandoverID null.String `db:"handover_id"`
	Outcome    string      `db:"outcome"`
	Conditions string      `db:"conditions"`
	Feedback   string      `db:"feedback"`

	ClientSigName    string    `db:"client_sig_name"`
	ClientSigTitle   string    `db:"client_sig_title"`
	ClientSignedAt   null.Time `db:"client_signed_at"`
	ProviderSigName  string    `db:"provider_sig_name"`
	ProviderSigTitle string    `db:"provider_sig_title"`
	ProviderSignedAt null.Time `db:"provider_signed_at"`

	DocumentID null.String `db:"document_id"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r acceptanceRow) toAcceptance() acceptance.Acceptance {
	return acceptance.Acceptance{
		ID:                r.ID,
		ProjectID:         r.ProjectID,
		HandoverID:        r.HandoverID.String,
		Outcome:           r.Outcome,
		Conditions:        r.Conditions,
		Feedback:          r.Feedback,
		ClientSignature:   acceptance.Signature{Name: r.ClientSigName, Title: r.ClientSigTitle, SignedAt: r.ClientSignedAt.Time},
		ProviderSignature: acceptance.Signature{Name: r.ProviderSigName, Title: r.ProviderSigTitle, SignedAt: r.ProviderSignedAt.Time},
		DocumentID:        r.DocumentID.String,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newAcceptanceRow(a acceptance.Acceptance) acceptanceRow {
	return acceptanceRow{
		ID:               a.ID,
		ProjectID:        a.ProjectID,
		HandoverID:       null.NewString(a.HandoverID, a.HandoverID != ""),
		Outcome:          a.Outcome,
		Conditions:       a.Conditions,
		Feedback:         a.Feedback,
		ClientSigName:    a.ClientSignature.Name,
		ClientSigTitle:   a.ClientSignature.Title,
		ClientSignedAt:   null.NewTime(a.ClientSignature.SignedAt, !a.ClientSignature.SignedAt.IsZero()),
		ProviderSigName:  a.ProviderSignature.Name,
		ProviderSigTitle: a.ProviderSignature.Title,
		ProviderSignedAt: null.NewTime(a.ProviderSignature.SignedAt, !a.ProviderSignature.SignedAt.IsZero()),
		DocumentID:       null.NewString(a.DocumentID, a.DocumentID != ""),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

const acceptanceCols = `id, project_id, handover_id, outcome, conditions, feedback,
	client_sig_name, client_sig_title, client_signed_at, provider_sig_name,
	provider_sig_title, provider_signed_at, document_id, created_at, updated_at`

type acceptanceRepository struct {
	db core.DB
}

var _ acceptance.Repository = (*acceptanceRepository)(nil)

func NewAcceptanceRepository(db core.DB) acceptance.Repository {
	return &acceptanceRepository{db: db}
}

func (repo *acceptanceRepository) CreateAcceptance(ctx context.Context, a *acceptance.Acceptance, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO pilot_acceptance (` + acceptanceCols + `)
		VALUES (:id, :project_id, :handover_id, :outcome, :conditions, :feedback,
			:client_sig_name, :client_sig_title, :client_signed_at, :provider_sig_name,
			:provider_sig_title, :provider_signed_at, :document_id, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newAcceptanceRow(*a))
	return errors.Wrap(err, "creating acceptance")
}

func (repo *acceptanceRepository) QueryAcceptances(ctx context.Context, filter acceptance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]acceptance.Acceptance, error) {
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
	if filter.Outcome != "" {
		conds = append(conds, "outcome = "+arg(filter.Outcome))
	}

	q := `SELECT ` + acceptanceCols + ` FROM pilot_acceptance` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []acceptanceRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying acceptances")
	}
	accs := make([]acceptance.Acceptance, len(rows))
	for i, row := range rows {
		accs[i] = row.toAcceptance()
	}
	return accs, nil
}

func (repo *acceptanceRepository) GetAcceptance(ctx context.Context, id string, exec ...core.DBExecutor) (acceptance.Acceptance, error) {
	ex := executor(repo.db, exec)
	var row acceptanceRow
	if err := ex.GetContext(ctx, &row, `SELECT `+acceptanceCols+` FROM pilot_acceptance WHERE id = $1`, id); err != nil {
		return acceptance.Acceptance{}, trapNoRowsErr(err, acceptance.ErrNotFound, "getting acceptance")
	}
	return row.toAcceptance(), nil
}

func (repo *acceptanceRepository) GetAcceptanceByProjectID(ctx context.Context, projectID string, exec ...core.DBExecutor) (acceptance.Acceptance, error) {
	ex := executor(repo.db, exec)
	var row acceptanceRow
	if err := ex.GetContext(ctx, &row, `SELECT `+acceptanceCols+` FROM pilot_acceptance WHERE project_id = $1`, projectID); err != nil {
		return acceptance.Acceptance{}, trapNoRowsErr(err, acceptance.ErrNotFound, "getting acceptance by project")
	}
	return row.toAcceptance(), nil
}

func (repo *acceptanceRepository) UpdateAcceptance(ctx context.Context, a *acceptance.Acceptance, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE pilot_acceptance
		SET outcome = :outcome, conditions = :conditions, feedback = :feedback,
			client_sig_name = :client_sig_name, client_sig_title = :client_sig_title,
			client_signed_at = :client_signed_at, provider_sig_name = :provider_sig_name,
			provider_sig_title = :provider_sig_title, provider_signed_at = :provider_signed_at,
			document_id = :document_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newAcceptanceRow(*a))
	if err != nil {
		return errors.Wrap(err, "updating acceptance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return acceptance.ErrNotFound
	}
	return nil
}

func (repo *acceptanceRepository) DeleteAcceptancesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "pilot_acceptance", ids)
}
