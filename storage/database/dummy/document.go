package dummydb

import (
	"context"
	"strings"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/document"
)

type documentRepository struct {
	db *documentTables
}

var _ document.Repository = (*documentRepository)(nil)

func NewDocumentRepository(db *DB) document.Repository {
	return &documentRepository{db: db.document}
}

func (repo *documentRepository) CreateTemplate(ctx context.Context, tmpl *document.Template, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *tmpl
	repo.db.templates[tmpl.ID] = &cp
	return nil
}

func (repo *documentRepository) QueryTemplates(ctx context.Context, filter document.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]document.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tmpls := make([]document.Template, 0, len(repo.db.templates))
	for _, tmpl := range repo.db.templates {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(tmpl.Name), search) &&
				!strings.Contains(strings.ToLower(tmpl.Description), search) {
				continue
			}
		}
		if filter.DocType != "" && tmpl.DocType != filter.DocType {
			continue
		}
		if filter.Status != "" && tmpl.Status != filter.Status {
			continue
		}
		tmpls = append(tmpls, *tmpl)
	}
	return tmpls, nil
}

func (repo *documentRepository) GetTemplate(ctx context.Context, id string, exec ...core.DBExecutor) (document.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tmpl, ok := repo.db.templates[id]; ok {
		return *tmpl, nil
	}
	return document.Template{}, document.ErrNotFound
}

func (repo *documentRepository) GetPublishedTemplate(ctx context.Context, docType string, exec ...core.DBExecutor) (document.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, tmpl := range repo.db.templates {
		if tmpl.DocType == docType && tmpl.Status == document.TemplatePublished {
			return *tmpl, nil
		}
	}
	return document.Template{}, document.ErrNotFound
}

func (repo *documentRepository) UpdateTemplate(ctx context.Context, tmpl *document.Template, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.templates[tmpl.ID]; !ok {
		return document.ErrNotFound
	}
	cp := *tmpl
	repo.db.templates[tmpl.ID] = &cp
	return nil
}

func (repo *documentRepository) DeleteTemplatesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.templates[id]; ok {
			delete(repo.db.templates, id)
			n++
		}
	}
	return n, nil
}

func (repo *documentRepository) CreateInstance(ctx context.Context, inst *document.Instance, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *inst
	repo.db.instances[inst.ID] = &cp
	return nil
}

func (repo *documentRepository) QueryInstances(ctx context.Context, filter document.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]document.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	insts := make([]document.Instance, 0, len(repo.db.instances))
	for _, inst := range repo.db.instances {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(inst.Title), search) {
				continue
			}
		}
		if filter.DocType != "" && inst.DocType != filter.DocType {
			continue
		}
		if filter.Status != "" && inst.Status != filter.Status {
			continue
		}
		if filter.ProjectID != "" && inst.ProjectID != filter.ProjectID {
			continue
		}
		insts = append(insts, *inst)
	}
	return insts, nil
}

func (repo *documentRepository) GetInstance(ctx context.Context, id string, exec ...core.DBExecutor) (document.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inst, ok := repo.db.instances[id]; ok {
		return *inst, nil
	}
	return document.Instance{}, document.ErrNotFound
}

func (repo *documentRepository) UpdateInstance(ctx context.Context, inst *document.Instance, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.instances[inst.ID]; !ok {
		return document.ErrNotFound
	}
	cp := *inst
	repo.db.instances[inst.ID] = &cp
	return nil
}

func (repo *documentRepository) DeleteInstancesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.instances[id]; ok {
			delete(repo.db.instances, id)
			n++
		}
	}
	return n, nil
}
