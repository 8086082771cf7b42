package dummydb

import (
	"context"
	"strings"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/change"
)

type changeRepository struct {
	db *changeTables
}

var _ change.Repository = (*changeRepository)(nil)

func NewChangeRepository(db *DB) change.Repository {
	return &changeRepository{db: db.change}
}

func (repo *changeRepository) NextSequence(ctx context.Context, year int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.sequences[year]++
	return repo.db.sequences[year], nil
}

func (repo *changeRepository) CreateRequest(ctx context.Context, req *change.Request, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *req
	repo.db.requests[req.ID] = &cp
	return nil
}

func (repo *changeRepository) QueryRequests(ctx context.Context, filter change.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]change.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reqs := make([]change.Request, 0, len(repo.db.requests))
	for _, req := range repo.db.requests {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(req.Title), search) &&
				!strings.Contains(strings.ToLower(req.RequestNumber), search) {
				continue
			}
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && req.Priority != filter.Priority {
			continue
		}
		if filter.ProjectID != "" && req.ProjectID != filter.ProjectID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsString(filter.Statuses, req.Status) {
			continue
		}
		reqs = append(reqs, *req)
	}
	return reqs, nil
}

func (repo *changeRepository) GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (change.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.requests[id]; ok {
		return *req, nil
	}
	return change.Request{}, change.ErrNotFound
}

func (repo *changeRepository) UpdateRequest(ctx context.Context, req *change.Request, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.requests[req.ID]; !ok {
		return change.ErrNotFound
	}
	cp := *req
	repo.db.requests[req.ID] = &cp
	return nil
}

func (repo *changeRepository) CountByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	for _, req := range repo.db.requests {
		counts[req.Status]++
	}
	return counts, nil
}

func (repo *changeRepository) DeleteRequestsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.requests[id]; ok {
			delete(repo.db.requests, id)
			n++
		}
	}
	return n, nil
}
