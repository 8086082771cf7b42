package dummydb

import (
	"context"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/handover"
)

type handoverRepository struct {
	db *handoverTable
}

var _ handover.Repository = (*handoverRepository)(nil)

func NewHandoverRepository(db *DB) handover.Repository {
	return &handoverRepository{db: db.handover}
}

func (repo *handoverRepository) CreateHandover(ctx context.Context, h *handover.Handover, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *h
	repo.db.table[h.ID] = &cp
	return nil
}

func (repo *handoverRepository) QueryHandovers(ctx context.Context, filter handover.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]handover.Handover, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	hs := make([]handover.Handover, 0, len(repo.db.table))
	for _, h := range repo.db.table {
		if filter.ProjectID != "" && h.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Decision != "" && h.GoNoGoDecision != filter.Decision {
			continue
		}
		hs = append(hs, *h)
	}
	return hs, nil
}

func (repo *handoverRepository) GetHandover(ctx context.Context, id string, exec ...core.DBExecutor) (handover.Handover, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if h, ok := repo.db.table[id]; ok {
		return *h, nil
	}
	return handover.Handover{}, handover.ErrNotFound
}

func (repo *handoverRepository) GetHandoverByProjectID(ctx context.Context, projectID string, exec ...core.DBExecutor) (handover.Handover, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, h := range repo.db.table {
		if h.ProjectID == projectID {
			return *h, nil
		}
	}
	return handover.Handover{}, handover.ErrNotFound
}

func (repo *handoverRepository) UpdateHandover(ctx context.Context, h *handover.Handover, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[h.ID]; !ok {
		return handover.ErrNotFound
	}
	cp := *h
	repo.db.table[h.ID] = &cp
	return nil
}

func (repo *handoverRepository) DeleteHandoversByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}
