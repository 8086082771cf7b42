package dummydb

import (
	"context"
	"time"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEvent(ctx context.Context, ev *audit.SecurityEvent, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.events = append(repo.db.events, *ev)
	return nil
}

func (repo *auditRepository) QueryEvents(ctx context.Context, filter audit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]audit.SecurityEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	from, to, err := parseEventRange(filter)
	if err != nil {
		return nil, err
	}

	var evs []audit.SecurityEvent
	for _, ev := range repo.db.events {
		if filter.EventType != "" && ev.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && ev.Severity != filter.Severity {
			continue
		}
		if filter.Resolved != "" && ev.Resolved != (filter.Resolved == "true") {
			continue
		}
		if filter.UserID != "" && ev.UserID != filter.UserID {
			continue
		}
		if filter.IPAddress != "" && ev.IPAddress != filter.IPAddress {
			continue
		}
		if !from.IsZero() && ev.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && ev.CreatedAt.After(to) {
			continue
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

func (repo *auditRepository) ResolveEventsByID(ctx context.Context, ids []string, resolvedByID string, at time.Time, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for i := range repo.db.events {
		ev := &repo.db.events[i]
		if ev.Resolved || !containsString(ids, ev.ID) {
			continue
		}
		ev.Resolved = true
		ev.ResolvedByID = resolvedByID
		ev.ResolvedAt = at
		n++
	}
	return n, nil
}

func (repo *auditRepository) CountEvents(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]audit.EventCount, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	idx := make(map[[2]string]int)
	for _, ev := range repo.db.events {
		if ev.CreatedAt.Before(since) {
			continue
		}
		idx[[2]string{ev.EventType, ev.Severity}]++
	}
	counts := make([]audit.EventCount, 0, len(idx))
	for key, n := range idx {
		counts = append(counts, audit.EventCount{EventType: key[0], Severity: key[1], Count: n})
	}
	return counts, nil
}

func (repo *auditRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	kept := repo.db.events[:0]
	var n int
	for _, ev := range repo.db.events {
		if ev.Resolved && ev.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	repo.db.events = kept
	return n, nil
}

func parseEventRange(filter audit.QueryFilter) (from, to time.Time, err error) {
	if filter.From != "" {
		if from, err = time.Parse(time.RFC3339, filter.From); err != nil {
			return
		}
	}
	if filter.To != "" {
		to, err = time.Parse(time.RFC3339, filter.To)
	}
	return
}
