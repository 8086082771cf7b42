package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/attachment"
)

type attachmentRow struct {
	ID            string    `db:"id"`
	EntityType    string    `db:"entity_type"`
	EntityID      string    `db:"entity_id"`
	FileName      string    `db:"file_name"`
	StoragePath   string    `db:"storage_path"`
	ContentType   string    `db:"content_type"`
	Category      string    `db:"category"`
	SizeBytes     int64     `db:"size_bytes"`
	Checksum      string    `db:"checksum"`
	Description   string    `db:"description"`
	UploadedByID  string    `db:"uploaded_by_id"`
	DownloadCount int       `db:"download_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const attachmentCols = `id, entity_type, entity_id, file_name, storage_path, content_type,
	category, size_bytes, checksum, description, uploaded_by_id, download_count, created_at, updated_at`

type outboxRow struct {
	ID             string      `db:"id"`
	IdempotencyKey string      `db:"idempotency_key"`
	EntityType     string      `db:"entity_type"`
	EntityID       string      `db:"entity_id"`
	FileName       string      `db:"file_name"`
	ContentType    string      `db:"content_type"`
	SizeBytes      int64       `db:"size_bytes"`
	Checksum       string      `db:"checksum"`
	StagingPath    string      `db:"staging_path"`
	Description    string      `db:"description"`
	UploadedByID   string      `db:"uploaded_by_id"`
	Status         string      `db:"status"`
	Attempts       int         `db:"attempts"`
	NextAttemptAt  time.Time   `db:"next_attempt_at"`
	LastError      string      `db:"last_error"`
	AttachmentID   null.String `db:"attachment_id"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func (r outboxRow) toEntry() attachment.OutboxEntry {
	return attachment.OutboxEntry{
		ID:             r.ID,
		IdempotencyKey: r.IdempotencyKey,
		EntityType:     r.EntityType,
		EntityID:       r.EntityID,
		FileName:       r.FileName,
		ContentType:    r.ContentType,
		SizeBytes:      r.SizeBytes,
		Checksum:       r.Checksum,
		StagingPath:    r.StagingPath,
		Description:    r.Description,
		UploadedByID:   r.UploadedByID,
		Status:         r.Status,
		Attempts:       r.Attempts,
		NextAttemptAt:  r.NextAttemptAt,
		LastError:      r.LastError,
		AttachmentID:   r.AttachmentID.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newOutboxRow(e attachment.OutboxEntry) outboxRow {
	return outboxRow{
		ID:             e.ID,
		IdempotencyKey: e.IdempotencyKey,
		EntityType:     e.EntityType,
		EntityID:       e.EntityID,
		FileName:       e.FileName,
		ContentType:    e.ContentType,
		SizeBytes:      e.SizeBytes,
		Checksum:       e.Checksum,
		StagingPath:    e.StagingPath,
		Description:    e.Description,
		UploadedByID:   e.UploadedByID,
		Status:         e.Status,
		Attempts:       e.Attempts,
		NextAttemptAt:  e.NextAttemptAt,
		LastError:      e.LastError,
		AttachmentID:   null.NewString(e.AttachmentID, e.AttachmentID != ""),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

const outboxCols = `id, idempotency_key, entity_type, entity_id, file_name, content_type,
	size_bytes, checksum, staging_path, description, uploaded_by_id, status, attempts,
	next_attempt_at, last_error, attachment_id, created_at, updated_at`

type attachmentRepository struct {
	db core.DB
}

var _ attachment.Repository = (*attachmentRepository)(nil)

func NewAttachmentRepository(db core.DB) attachment.Repository {
	return &attachmentRepository{db: db}
}

func (repo *attachmentRepository) CreateAttachment(ctx context.Context, at *attachment.Attachment, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO attachment (` + attachmentCols + `)
		VALUES (:id, :entity_type, :entity_id, :file_name, :storage_path, :content_type, :category,
			:size_bytes, :checksum, :description, :uploaded_by_id, :download_count, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, attachmentRow(*at))
	return errors.Wrap(err, "creating attachment")
}

func (repo *attachmentRepository) QueryAttachments(ctx context.Context, filter attachment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attachment.Attachment, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.EntityType != "" {
		conds = append(conds, "entity_type = "+arg(filter.EntityType))
	}
	if filter.EntityID != "" {
		conds = append(conds, "entity_id = "+arg(filter.EntityID))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.UploadedByID != "" {
		conds = append(conds, "uploaded_by_id = "+arg(filter.UploadedByID))
	}

	q := `SELECT ` + attachmentCols + ` FROM attachment` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []attachmentRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attachments")
	}
	ats := make([]attachment.Attachment, len(rows))
	for i, row := range rows {
		ats[i] = attachment.Attachment(row)
	}
	return ats, nil
}

func (repo *attachmentRepository) GetAttachment(ctx context.Context, id string, exec ...core.DBExecutor) (attachment.Attachment, error) {
	ex := executor(repo.db, exec)
	var row attachmentRow
	if err := ex.GetContext(ctx, &row, `SELECT `+attachmentCols+` FROM attachment WHERE id = $1`, id); err != nil {
		return attachment.Attachment{}, trapNoRowsErr(err, attachment.ErrNotFound, "getting attachment")
	}
	return attachment.Attachment(row), nil
}

func (repo *attachmentRepository) UpdateAttachment(ctx context.Context, at *attachment.Attachment, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE attachment
		SET file_name = :file_name, description = :description, download_count = :download_count,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, attachmentRow(*at))
	if err != nil {
		return errors.Wrap(err, "updating attachment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attachment.ErrNotFound
	}
	return nil
}

func (repo *attachmentRepository) DeleteAttachmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "attachment", ids)
}

func (repo *attachmentRepository) IncrementDownloadCount(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `UPDATE attachment SET download_count = download_count + 1, updated_at = now() WHERE id = $1`
	res, err := ex.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrap(err, "incrementing download count")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attachment.ErrNotFound
	}
	return nil
}

func (repo *attachmentRepository) CountByCategory(ctx context.Context, exec ...core.DBExecutor) (map[string]int, int64, error) {
	ex := executor(repo.db, exec)
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
		Bytes    int64  `db:"bytes"`
	}
	q := `SELECT category, COUNT(*) AS count, COALESCE(SUM(size_bytes), 0) AS bytes FROM attachment GROUP BY category`
	if err := ex.SelectContext(ctx, &rows, q); err != nil {
		return nil, 0, errors.Wrap(err, "counting attachments")
	}
	counts := make(map[string]int, len(rows))
	var total int64
	for _, row := range rows {
		counts[row.Category] = row.Count
		total += row.Bytes
	}
	return counts, total, nil
}

func (repo *attachmentRepository) CreateOutboxEntry(ctx context.Context, e *attachment.OutboxEntry, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO attachment_outbox (` + outboxCols + `)
		VALUES (:id, :idempotency_key, :entity_type, :entity_id, :file_name, :content_type,
			:size_bytes, :checksum, :staging_path, :description, :uploaded_by_id, :status,
			:attempts, :next_attempt_at, :last_error, :attachment_id, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newOutboxRow(*e))
	return errors.Wrap(err, "creating outbox entry")
}

func (repo *attachmentRepository) GetOutboxEntryByKey(ctx context.Context, key string, exec ...core.DBExecutor) (attachment.OutboxEntry, error) {
	ex := executor(repo.db, exec)
	var row outboxRow
	if err := ex.GetContext(ctx, &row, `SELECT `+outboxCols+` FROM attachment_outbox WHERE idempotency_key = $1`, key); err != nil {
		return attachment.OutboxEntry{}, trapNoRowsErr(err, attachment.ErrOutboxNotFound, "getting outbox entry")
	}
	return row.toEntry(), nil
}

func (repo *attachmentRepository) UpdateOutboxEntry(ctx context.Context, e *attachment.OutboxEntry, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE attachment_outbox
		SET status = :status, attempts = :attempts, next_attempt_at = :next_attempt_at,
			last_error = :last_error, attachment_id = :attachment_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newOutboxRow(*e))
	if err != nil {
		return errors.Wrap(err, "updating outbox entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attachment.ErrOutboxNotFound
	}
	return nil
}

func (repo *attachmentRepository) QueryDueOutboxEntries(ctx context.Context, now time.Time, limit int, exec ...core.DBExecutor) ([]attachment.OutboxEntry, error) {
	ex := executor(repo.db, exec)
	q := `
		SELECT ` + outboxCols + `
		FROM attachment_outbox
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY next_attempt_at
		LIMIT $3`
	var rows []outboxRow
	if err := ex.SelectContext(ctx, &rows, q, attachment.OutboxPending, now, limit); err != nil {
		return nil, errors.Wrap(err, "querying due outbox entries")
	}
	entries := make([]attachment.OutboxEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry()
	}
	return entries, nil
}
