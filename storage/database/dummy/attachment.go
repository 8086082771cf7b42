package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/attachment"
)

type attachmentRepository struct {
	db *attachmentTables
}

var _ attachment.Repository = (*attachmentRepository)(nil)

func NewAttachmentRepository(db *DB) attachment.Repository {
	return &attachmentRepository{db: db.attachment}
}

func (repo *attachmentRepository) CreateAttachment(ctx context.Context, at *attachment.Attachment, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *at
	repo.db.attachments[at.ID] = &cp
	return nil
}

func (repo *attachmentRepository) QueryAttachments(ctx context.Context, filter attachment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attachment.Attachment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ats := make([]attachment.Attachment, 0, len(repo.db.attachments))
	for _, at := range repo.db.attachments {
		if filter.EntityType != "" && at.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && at.EntityID != filter.EntityID {
			continue
		}
		if filter.Category != "" && at.Category != filter.Category {
			continue
		}
		if filter.UploadedByID != "" && at.UploadedByID != filter.UploadedByID {
			continue
		}
		ats = append(ats, *at)
	}
	return ats, nil
}

func (repo *attachmentRepository) CountByCategory(ctx context.Context, exec ...core.DBExecutor) (map[string]int, int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	var total int64
	for _, at := range repo.db.attachments {
		counts[at.Category]++
		total += at.SizeBytes
	}
	return counts, total, nil
}

func (repo *attachmentRepository) GetAttachment(ctx context.Context, id string, exec ...core.DBExecutor) (attachment.Attachment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if at, ok := repo.db.attachments[id]; ok {
		return *at, nil
	}
	return attachment.Attachment{}, attachment.ErrNotFound
}

func (repo *attachmentRepository) UpdateAttachment(ctx context.Context, at *attachment.Attachment, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.attachments[at.ID]; !ok {
		return attachment.ErrNotFound
	}
	cp := *at
	repo.db.attachments[at.ID] = &cp
	return nil
}

func (repo *attachmentRepository) DeleteAttachmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.attachments[id]; ok {
			delete(repo.db.attachments, id)
			n++
		}
	}
	return n, nil
}

func (repo *attachmentRepository) IncrementDownloadCount(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	at, ok := repo.db.attachments[id]
	if !ok {
		return attachment.ErrNotFound
	}
	at.DownloadCount++
	return nil
}

func (repo *attachmentRepository) CreateOutboxEntry(ctx context.Context, e *attachment.OutboxEntry, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *e
	repo.db.outbox[e.ID] = &cp
	return nil
}

func (repo *attachmentRepository) GetOutboxEntryByKey(ctx context.Context, key string, exec ...core.DBExecutor) (attachment.OutboxEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.outbox {
		if e.IdempotencyKey == key {
			return *e, nil
		}
	}
	return attachment.OutboxEntry{}, attachment.ErrOutboxNotFound
}

func (repo *attachmentRepository) UpdateOutboxEntry(ctx context.Context, e *attachment.OutboxEntry, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.outbox[e.ID]; !ok {
		return attachment.ErrOutboxNotFound
	}
	cp := *e
	repo.db.outbox[e.ID] = &cp
	return nil
}

func (repo *attachmentRepository) QueryDueOutboxEntries(ctx context.Context, now time.Time, limit int, exec ...core.DBExecutor) ([]attachment.OutboxEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []attachment.OutboxEntry
	for _, e := range repo.db.outbox {
		if e.Due(now) {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].NextAttemptAt.Before(entries[j].NextAttemptAt) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
