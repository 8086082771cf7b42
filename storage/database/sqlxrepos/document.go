package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/document"
)

type documentTemplateRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	DocType        string         `db:"doc_type"`
	Description    string         `db:"description"`
	Content        string         `db:"content"`
	RequiredFields pq.StringArray `db:"required_fields"`
	Version        int            `db:"version"`
	Status         string         `db:"status"`
	CreatedByID    null.String    `db:"created_by_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r documentTemplateRow) toTemplate() document.Template {
	return document.Template{
		ID:             r.ID,
		Name:           r.Name,
		DocType:        r.DocType,
		Description:    r.Description,
		Content:        r.Content,
		RequiredFields: r.RequiredFields,
		Version:        r.Version,
		Status:         r.Status,
		CreatedByID:    r.CreatedByID.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newDocumentTemplateRow(t document.Template) documentTemplateRow {
	return documentTemplateRow{
		ID:             t.ID,
		Name:           t.Name,
		DocType:        t.DocType,
		Description:    t.Description,
		Content:        t.Content,
		RequiredFields: t.RequiredFields,
		Version:        t.Version,
		Status:         t.Status,
		CreatedByID:    null.NewString(t.CreatedByID, t.CreatedByID != ""),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

const documentTemplateCols = `id, name, doc_type, description, content, required_fields,
	version, status, created_by_id, created_at, updated_at`

type documentInstanceRow struct {
	ID              string      `db:"id"`
	TemplateID      string      `db:"template_id"`
	TemplateVersion int         `db:"template_version"`
	DocType         string      `db:"doc_type"`
	Title           string      `db:"title"`
	ProjectID       null.String `db:"project_id"`
	Data            []byte      `db:"data"`
	RenderedHTML    string      `db:"rendered_html"`
	Status          string      `db:"status"`
	GeneratedByID   null.String `db:"generated_by_id"`
	GeneratedAt     time.Time   `db:"generated_at"`
	SignedAt        null.Time   `db:"signed_at"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (r documentInstanceRow) toInstance() (document.Instance, error) {
	inst := document.Instance{
		ID:              r.ID,
		TemplateID:      r.TemplateID,
		TemplateVersion: r.TemplateVersion,
		DocType:         r.DocType,
		Title:           r.Title,
		ProjectID:       r.ProjectID.String,
		RenderedHTML:    r.RenderedHTML,
		Status:          r.Status,
		GeneratedByID:   r.GeneratedByID.String,
		GeneratedAt:     r.GeneratedAt,
		SignedAt:        r.SignedAt.Time,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	return inst, fromJSON(r.Data, &inst.Data)
}

func newDocumentInstanceRow(inst document.Instance) documentInstanceRow {
	return documentInstanceRow{
		ID:              inst.ID,
		TemplateID:      inst.TemplateID,
		TemplateVersion: inst.TemplateVersion,
		DocType:         inst.DocType,
		Title:           inst.Title,
		ProjectID:       null.NewString(inst.ProjectID, inst.ProjectID != ""),
		Data:            mustJSON(inst.Data),
		RenderedHTML:    inst.RenderedHTML,
		Status:          inst.Status,
		GeneratedByID:   null.NewString(inst.GeneratedByID, inst.GeneratedByID != ""),
		GeneratedAt:     inst.GeneratedAt,
		SignedAt:        null.NewTime(inst.SignedAt, !inst.SignedAt.IsZero()),
		CreatedAt:       inst.CreatedAt,
		UpdatedAt:       inst.UpdatedAt,
	}
}

const documentInstanceCols = `id, template_id, template_version, doc_type, title, project_id,
	data, rendered_html, status, generated_by_id, generated_at, signed_at, created_at, updated_at`

type documentRepository struct {
	db core.DB
}

var _ document.Repository = (*documentRepository)(nil)

func NewDocumentRepository(db core.DB) document.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateTemplate(ctx context.Context, tmpl *document.Template, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO document_template (` + documentTemplateCols + `)
		VALUES (:id, :name, :doc_type, :description, :content, :required_fields, :version,
			:status, :created_by_id, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newDocumentTemplateRow(*tmpl))
	return errors.Wrap(err, "creating document template")
}

func (repo *documentRepository) QueryTemplates(ctx context.Context, filter document.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]document.Template, error) {
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
	if filter.DocType != "" {
		conds = append(conds, "doc_type = "+arg(filter.DocType))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}

	q := `SELECT ` + documentTemplateCols + ` FROM document_template` + whereClause(conds) + orderBy(ordering, "name ASC, version DESC")
	var rows []documentTemplateRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying document templates")
	}
	tmpls := make([]document.Template, len(rows))
	for i, row := range rows {
		tmpls[i] = row.toTemplate()
	}
	return tmpls, nil
}

func (repo *documentRepository) GetTemplate(ctx context.Context, id string, exec ...core.DBExecutor) (document.Template, error) {
	ex := executor(repo.db, exec)
	var row documentTemplateRow
	if err := ex.GetContext(ctx, &row, `SELECT `+documentTemplateCols+` FROM document_template WHERE id = $1`, id); err != nil {
		return document.Template{}, trapNoRowsErr(err, document.ErrNotFound, "getting document template")
	}
	return row.toTemplate(), nil
}

func (repo *documentRepository) GetPublishedTemplate(ctx context.Context, docType string, exec ...core.DBExecutor) (document.Template, error) {
	ex := executor(repo.db, exec)
	var row documentTemplateRow
	q := `SELECT ` + documentTemplateCols + ` FROM document_template WHERE doc_type = $1 AND status = $2`
	if err := ex.GetContext(ctx, &row, q, docType, document.TemplatePublished); err != nil {
		return document.Template{}, trapNoRowsErr(err, document.ErrNotFound, "getting published template")
	}
	return row.toTemplate(), nil
}

func (repo *documentRepository) UpdateTemplate(ctx context.Context, tmpl *document.Template, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE document_template
		SET name = :name, description = :description, content = :content,
			required_fields = :required_fields, version = :version, status = :status,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newDocumentTemplateRow(*tmpl))
	if err != nil {
		return errors.Wrap(err, "updating document template")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (repo *documentRepository) DeleteTemplatesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "document_template", ids)
}

func (repo *documentRepository) CreateInstance(ctx context.Context, inst *document.Instance, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO document_instance (` + documentInstanceCols + `)
		VALUES (:id, :template_id, :template_version, :doc_type, :title, :project_id, :data,
			:rendered_html, :status, :generated_by_id, :generated_at, :signed_at, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newDocumentInstanceRow(*inst))
	return errors.Wrap(err, "creating document instance")
}

func (repo *documentRepository) QueryInstances(ctx context.Context, filter document.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]document.Instance, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		conds = append(conds, "title ILIKE "+arg("%"+filter.Search+"%"))
	}
	if filter.DocType != "" {
		conds = append(conds, "doc_type = "+arg(filter.DocType))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.ProjectID != "" {
		conds = append(conds, "project_id = "+arg(filter.ProjectID))
	}

	q := `SELECT ` + documentInstanceCols + ` FROM document_instance` + whereClause(conds) + orderBy(ordering, "generated_at DESC")
	var rows []documentInstanceRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying document instances")
	}
	insts := make([]document.Instance, len(rows))
	for i, row := range rows {
		inst, err := row.toInstance()
		if err != nil {
			return nil, errors.Wrap(err, "decoding document instance")
		}
		insts[i] = inst
	}
	return insts, nil
}

func (repo *documentRepository) GetInstance(ctx context.Context, id string, exec ...core.DBExecutor) (document.Instance, error) {
	ex := executor(repo.db, exec)
	var row documentInstanceRow
	if err := ex.GetContext(ctx, &row, `SELECT `+documentInstanceCols+` FROM document_instance WHERE id = $1`, id); err != nil {
		return document.Instance{}, trapNoRowsErr(err, document.ErrNotFound, "getting document instance")
	}
	inst, err := row.toInstance()
	return inst, errors.Wrap(err, "decoding document instance")
}

func (repo *documentRepository) UpdateInstance(ctx context.Context, inst *document.Instance, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE document_instance
		SET title = :title, data = :data, rendered_html = :rendered_html, status = :status,
			signed_at = :signed_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newDocumentInstanceRow(*inst))
	if err != nil {
		return errors.Wrap(err, "updating document instance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (repo *documentRepository) DeleteInstancesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "document_instance", ids)
}
