package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/project"
)

type projectRepository struct {
	db *projectTables
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.project}
}

func (repo *projectRepository) CreateProject(ctx context.Context, proj *project.Project, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *proj
	repo.db.projects[proj.ID] = &cp
	return nil
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter project.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	projects := make([]project.Project, 0, len(repo.db.projects))
	for _, p := range repo.db.projects {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.Description), search) {
				continue
			}
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.ServiceType != "" && p.ServiceType != filter.ServiceType {
			continue
		}
		if filter.ClientID != "" && p.ClientID != filter.ClientID {
			continue
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id string, exec ...core.DBExecutor) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.projects[id]; ok {
		return *p, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) UpdateProject(ctx context.Context, proj *project.Project, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.projects[proj.ID]; !ok {
		return project.ErrNotFound
	}
	cp := *proj
	repo.db.projects[proj.ID] = &cp
	return nil
}

func (repo *projectRepository) DeleteProjectsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.projects[id]; ok {
			delete(repo.db.projects, id)
			n++
		}
	}
	return n, nil
}

func (repo *projectRepository) CreateTransition(ctx context.Context, tr *project.StatusTransition, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.transitions = append(repo.db.transitions, *tr)
	return nil
}

func (repo *projectRepository) QueryTransitions(ctx context.Context, projectID string, exec ...core.DBExecutor) ([]project.StatusTransition, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var trs []project.StatusTransition
	for _, tr := range repo.db.transitions {
		if tr.ProjectID == projectID {
			trs = append(trs, tr)
		}
	}
	sort.Slice(trs, func(i, j int) bool { return trs[i].CreatedAt.Before(trs[j].CreatedAt) })
	return trs, nil
}

func (repo *projectRepository) NextCodeSequence(ctx context.Context, year int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.sequences[year]++
	return repo.db.sequences[year], nil
}

func (repo *projectRepository) CountByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	for _, p := range repo.db.projects {
		counts[p.Status]++
	}
	return counts, nil
}

func (repo *projectRepository) StatsByServiceType(ctx context.Context, exec ...core.DBExecutor) (map[string]project.ServiceTypeStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progressSums := make(map[string]int)
	stats := make(map[string]project.ServiceTypeStats)
	for _, p := range repo.db.projects {
		st := stats[p.ServiceType]
		st.Total++
		switch p.Status {
		case project.StatusOnHold:
			st.OnHold++
		case project.StatusCompleted:
			st.Completed++
		case project.StatusLead:
		default:
			st.Active++
		}
		st.EstimatedHours += p.EstimatedHours
		st.ActualHours += p.ActualHours
		progressSums[p.ServiceType] += p.ProgressPercentage
		stats[p.ServiceType] = st
	}
	for serviceType, st := range stats {
		st.AvgProgress = float64(progressSums[serviceType]) / float64(st.Total)
		stats[serviceType] = st
	}
	return stats, nil
}
