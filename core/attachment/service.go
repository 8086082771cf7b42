package attachment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrOutboxNotFound = errors.New("outbox entry not found")
)

// FileStore abstracts where attachment bytes live.
type FileStore interface {
	Save(ctx context.Context, path string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Move(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error
}

type Repository interface {
	CreateAttachment(ctx context.Context, at *Attachment, exec ...core.DBExecutor) error
	QueryAttachments(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attachment, error)
	GetAttachment(ctx context.Context, id string, exec ...core.DBExecutor) (Attachment, error)
	UpdateAttachment(ctx context.Context, at *Attachment, exec ...core.DBExecutor) error
	DeleteAttachmentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	IncrementDownloadCount(ctx context.Context, id string, exec ...core.DBExecutor) error
	CountByCategory(ctx context.Context, exec ...core.DBExecutor) (map[string]int, int64, error)

	CreateOutboxEntry(ctx context.Context, e *OutboxEntry, exec ...core.DBExecutor) error
	GetOutboxEntryByKey(ctx context.Context, key string, exec ...core.DBExecutor) (OutboxEntry, error)
	UpdateOutboxEntry(ctx context.Context, e *OutboxEntry, exec ...core.DBExecutor) error
	QueryDueOutboxEntries(ctx context.Context, now time.Time, limit int, exec ...core.DBExecutor) ([]OutboxEntry, error)
}

type ServiceInterface interface {
	Upload(ctx context.Context, na NewAttachment, fileName string, r io.Reader, uploadedByID string) (Attachment, error)
	Enqueue(ctx context.Context, na NewAttachment, fileName, idempotencyKey string, r io.Reader, uploadedByID string) (OutboxEntry, error)
	ProcessOutbox(ctx context.Context) (int, error)

	Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Attachment, error)
	Get(ctx context.Context, id string) (Attachment, error)
	Download(ctx context.Context, id string) (Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, ids ...string) error
	GetStatistics(ctx context.Context) (Statistics, error)
}

type Service struct {
	db    core.DB
	repo  Repository
	store FileStore
	log   core.Logger
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, store FileStore, log core.Logger) *Service {
	return &Service{db: db, repo: repo, store: store, log: log}
}

type fileInfo struct {
	content     []byte
	contentType string
	checksum    string
}

func (svc *Service) readFile(fileName string, r io.Reader) (fileInfo, error) {
	// read one byte over the limit so oversized uploads are caught
	// without buffering them whole
	content, err := io.ReadAll(io.LimitReader(r, core.Conf.MaxFileSize+1))
	if err != nil {
		return fileInfo{}, errors.Wrap(err, "reading upload")
	}
	if err = ValidateFile(fileName, int64(len(content))); err != nil {
		return fileInfo{}, err
	}
	sum := sha256.Sum256(content)
	return fileInfo{
		content:     content,
		contentType: http.DetectContentType(content),
		checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

func storagePath(entityType, id, fileName string) string {
	return path.Join(entityType, id+strings.ToLower(filepath.Ext(fileName)))
}

func (svc *Service) Upload(ctx context.Context, na NewAttachment, fileName string, r io.Reader, uploadedByID string) (Attachment, error) {
	fi, err := svc.readFile(fileName, r)
	if err != nil {
		return Attachment{}, err
	}

	now := time.Now()
	at := Attachment{
		ID:           uuid.New().String(),
		EntityType:   na.EntityType,
		EntityID:     na.EntityID,
		FileName:     filepath.Base(fileName),
		ContentType:  fi.contentType,
		Category:     Categorize(fi.contentType),
		SizeBytes:    int64(len(fi.content)),
		Checksum:     fi.checksum,
		Description:  na.Description,
		UploadedByID: uploadedByID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	at.StoragePath = storagePath(at.EntityType, at.ID, at.FileName)

	if err = svc.store.Save(ctx, at.StoragePath, bytes.NewReader(fi.content)); err != nil {
		return Attachment{}, errors.Wrap(err, "storing upload")
	}
	if err = svc.repo.CreateAttachment(ctx, &at); err != nil {
		// best effort cleanup; the row is the source of truth
		if delErr := svc.store.Delete(ctx, at.StoragePath); delErr != nil {
			svc.log.Warn("orphaned upload at "+at.StoragePath, delErr)
		}
		return Attachment{}, errors.Wrap(err, "creating attachment")
	}
	return at, nil
}

// Enqueue stages an upload in the outbox. Resubmitting with the same
// idempotency key returns the original entry instead of staging again.
func (svc *Service) Enqueue(ctx context.Context, na NewAttachment, fileName, idempotencyKey string, r io.Reader, uploadedByID string) (OutboxEntry, error) {
	if idempotencyKey != "" {
		if existing, err := svc.repo.GetOutboxEntryByKey(ctx, idempotencyKey); err == nil {
			return existing, nil
		} else if !errors.Is(err, ErrOutboxNotFound) {
			return OutboxEntry{}, err
		}
	}

	fi, err := svc.readFile(fileName, r)
	if err != nil {
		return OutboxEntry{}, err
	}

	now := time.Now()
	entry := OutboxEntry{
		ID:             uuid.New().String(),
		IdempotencyKey: idempotencyKey,
		EntityType:     na.EntityType,
		EntityID:       na.EntityID,
		FileName:       filepath.Base(fileName),
		ContentType:    fi.contentType,
		SizeBytes:      int64(len(fi.content)),
		Checksum:       fi.checksum,
		Description:    na.Description,
		UploadedByID:   uploadedByID,
		Status:         OutboxPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry.StagingPath = path.Join("outbox", entry.ID+strings.ToLower(filepath.Ext(entry.FileName)))

	if err = svc.store.Save(ctx, entry.StagingPath, bytes.NewReader(fi.content)); err != nil {
		return OutboxEntry{}, errors.Wrap(err, "staging upload")
	}
	if err = svc.repo.CreateOutboxEntry(ctx, &entry); err != nil {
		return OutboxEntry{}, errors.Wrap(err, "creating outbox entry")
	}
	return entry, nil
}

// ProcessOutbox finalizes due outbox entries: the staged file is moved into
// permanent storage and an Attachment row is created. Failed entries are
// rescheduled with linear backoff until they exhaust their attempts.
// It returns the number of entries finalized.
func (svc *Service) ProcessOutbox(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := svc.repo.QueryDueOutboxEntries(ctx, now, 50)
	if err != nil {
		return 0, errors.Wrap(err, "querying outbox")
	}

	var done int
	for i := range due {
		entry := due[i]
		if err := svc.finalize(ctx, &entry); err != nil {
			entry.scheduleRetry(time.Now(), err)
			svc.log.Warn("outbox entry "+entry.ID+" attempt failed", err)
		}
		if err := svc.repo.UpdateOutboxEntry(ctx, &entry); err != nil {
			return done, errors.Wrap(err, "updating outbox entry")
		}
		if entry.Status == OutboxCompleted {
			done++
		}
	}
	return done, nil
}

func (svc *Service) finalize(ctx context.Context, entry *OutboxEntry) error {
	now := time.Now()
	at := Attachment{
		ID:           uuid.New().String(),
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		FileName:     entry.FileName,
		ContentType:  entry.ContentType,
		Category:     Categorize(entry.ContentType),
		SizeBytes:    entry.SizeBytes,
		Checksum:     entry.Checksum,
		Description:  entry.Description,
		UploadedByID: entry.UploadedByID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	at.StoragePath = storagePath(at.EntityType, at.ID, at.FileName)

	if err := svc.store.Move(ctx, entry.StagingPath, at.StoragePath); err != nil {
		return errors.Wrap(err, "moving staged upload")
	}
	if err := svc.repo.CreateAttachment(ctx, &at); err != nil {
		return errors.Wrap(err, "creating attachment")
	}
	entry.Status = OutboxCompleted
	entry.AttachmentID = at.ID
	entry.UpdatedAt = now
	return nil
}

// RunOutboxWorker processes the outbox on the given interval until the
// context is cancelled.
func (svc *Service) RunOutboxWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ProcessOutbox(ctx); err != nil {
				svc.log.Error("processing upload outbox", err)
			}
		}
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Attachment, error) {
	return svc.repo.QueryAttachments(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Attachment, error) {
	return svc.repo.GetAttachment(ctx, id)
}

func (svc *Service) GetStatistics(ctx context.Context) (Statistics, error) {
	counts, bytes, err := svc.repo.CountByCategory(ctx)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "counting attachments")
	}
	stats := Statistics{TotalBytes: bytes, ByCategory: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// Download opens the attachment content and increments its download count.
// The caller owns the returned ReadCloser.
func (svc *Service) Download(ctx context.Context, id string) (Attachment, io.ReadCloser, error) {
	at, err := svc.repo.GetAttachment(ctx, id)
	if err != nil {
		return Attachment{}, nil, err
	}
	rc, err := svc.store.Open(ctx, at.StoragePath)
	if err != nil {
		return Attachment{}, nil, errors.Wrap(err, "opening attachment")
	}
	if err = svc.repo.IncrementDownloadCount(ctx, at.ID); err != nil {
		svc.log.Warn("incrementing download count for "+at.ID, err)
	}
	at.DownloadCount++
	return at, rc, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		at, err := svc.repo.GetAttachment(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		if err = svc.store.Delete(ctx, at.StoragePath); err != nil {
			svc.log.Warn("deleting attachment file "+at.StoragePath, err)
		}
	}
	_, err := svc.repo.DeleteAttachmentsByID(ctx, ids)
	return err
}
