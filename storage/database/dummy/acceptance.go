package dummydb

import (
	"context"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/acceptance"
)

type acceptanceRepository struct {
	db *acceptanceTable
}

var _ acceptance.Repository = (*acceptanceRepository)(nil)

func NewAcceptanceRepository(db *DB) acceptance.Repository {
	return &acceptanceRepository{db: db.acceptance}
}

func (repo *acceptanceRepository) CreateAcceptance(ctx context.Context, a *acceptance.Acceptance, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *a
	repo.db.table[a.ID] = &cp
	return nil
}

func (repo *acceptanceRepository) QueryAcceptances(ctx context.Context, filter acceptance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]acceptance.Acceptance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	as := make([]acceptance.Acceptance, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if filter.ProjectID != "" && a.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Outcome != "" && a.Outcome != filter.Outcome {
			continue
		}
		as = append(as, *a)
	}
	return as, nil
}

func (repo *acceptanceRepository) GetAcceptance(ctx context.Context, id string, exec ...core.DBExecutor) (acceptance.Acceptance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return acceptance.Acceptance{}, acceptance.ErrNotFound
}

func (repo *acceptanceRepository) GetAcceptanceByProjectID(ctx context.Context, projectID string, exec ...core.DBExecutor) (acceptance.Acceptance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.table {
		if a.ProjectID == projectID {
			return *a, nil
		}
	}
	return acceptance.Acceptance{}, acceptance.ErrNotFound
}

func (repo *acceptanceRepository) UpdateAcceptance(ctx context.Context, a *acceptance.Acceptance, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[a.ID]; !ok {
		return acceptance.ErrNotFound
	}
	cp := *a
	repo.db.table[a.ID] = &cp
	return nil
}

func (repo *acceptanceRepository) DeleteAcceptancesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
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
