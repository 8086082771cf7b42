package dummydb

import (
	"context"
	"strings"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/client"
)

type clientRepository struct {
	db *clientTables
}

var _ client.Repository = (*clientRepository)(nil)

func NewClientRepository(db *DB) client.Repository {
	return &clientRepository{db: db.client}
}

func (repo *clientRepository) CreateOrganization(ctx context.Context, org *client.Organization, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *org
	repo.db.orgs[org.ID] = &cp
	return nil
}

func (repo *clientRepository) QueryOrganizations(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orgs := make([]client.Organization, 0, len(repo.db.orgs))
	for _, org := range repo.db.orgs {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(org.Name), search) &&
				!strings.Contains(strings.ToLower(org.LegalName), search) &&
				!strings.Contains(strings.ToLower(org.Email), search) {
				continue
			}
		}
		if filter.Status != "" && org.Status != filter.Status {
			continue
		}
		orgs = append(orgs, *org)
	}
	return orgs, nil
}

func (repo *clientRepository) GetOrganization(ctx context.Context, id string, exec ...core.DBExecutor) (client.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if org, ok := repo.db.orgs[id]; ok {
		return *org, nil
	}
	return client.Organization{}, client.ErrNotFound
}

func (repo *clientRepository) UpdateOrganization(ctx context.Context, org *client.Organization, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.orgs[org.ID]; !ok {
		return client.ErrNotFound
	}
	cp := *org
	repo.db.orgs[org.ID] = &cp
	return nil
}

func (repo *clientRepository) DeleteOrganizationsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.orgs[id]; ok {
			delete(repo.db.orgs, id)
			n++
		}
	}
	return n, nil
}

func (repo *clientRepository) CheckContactUniqueness(ctx context.Context, orgID, email string, exclude []client.Contact, exec ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		excluded[c.ID] = true
	}
	for _, c := range repo.db.contacts {
		if c.OrganizationID == orgID && c.Email == email && !excluded[c.ID] {
			return client.ErrContactEmail
		}
	}
	return nil
}

func (repo *clientRepository) CreateContact(ctx context.Context, contact *client.Contact, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *contact
	repo.db.contacts[contact.ID] = &cp
	return nil
}

func (repo *clientRepository) QueryContacts(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Contact, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	contacts := make([]client.Contact, 0, len(repo.db.contacts))
	for _, c := range repo.db.contacts {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(c.FirstName), search) &&
				!strings.Contains(strings.ToLower(c.LastName), search) &&
				!strings.Contains(strings.ToLower(c.Email), search) {
				continue
			}
		}
		if filter.OrgID != "" && c.OrganizationID != filter.OrgID {
			continue
		}
		if filter.RoleType != "" && c.RoleType != filter.RoleType {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		contacts = append(contacts, *c)
	}
	return contacts, nil
}

func (repo *clientRepository) GetContact(ctx context.Context, id string, exec ...core.DBExecutor) (client.Contact, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.contacts[id]; ok {
		return *c, nil
	}
	return client.Contact{}, client.ErrNotFound
}

func (repo *clientRepository) GetContactByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (client.Contact, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.contacts {
		if c.UserID == userID {
			return *c, nil
		}
	}
	return client.Contact{}, client.ErrNotFound
}

func (repo *clientRepository) UpdateContact(ctx context.Context, contact *client.Contact, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.contacts[contact.ID]; !ok {
		return client.ErrNotFound
	}
	cp := *contact
	repo.db.contacts[contact.ID] = &cp
	return nil
}

func (repo *clientRepository) DeleteContactsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.contacts[id]; ok {
			delete(repo.db.contacts, id)
			n++
		}
	}
	return n, nil
}

func (repo *clientRepository) ClearPrimaryContact(ctx context.Context, orgID string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.contacts {
		if c.OrganizationID == orgID {
			c.IsPrimaryContact = false
		}
	}
	return nil
}

func (repo *clientRepository) CreateClient(ctx context.Context, cl *client.Client, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *cl
	repo.db.clients[cl.ID] = &cp
	return nil
}

func (repo *clientRepository) QueryClients(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Client, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	clients := make([]client.Client, 0, len(repo.db.clients))
	for _, cl := range repo.db.clients {
		if filter.OrgID != "" && cl.OrganizationID != filter.OrgID {
			continue
		}
		if filter.Status != "" && cl.RelationshipStatus != filter.Status {
			continue
		}
		clients = append(clients, *cl)
	}
	return clients, nil
}

func (repo *clientRepository) GetClient(ctx context.Context, id string, exec ...core.DBExecutor) (client.Client, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cl, ok := repo.db.clients[id]; ok {
		return *cl, nil
	}
	return client.Client{}, client.ErrNotFound
}

func (repo *clientRepository) GetClientByOrgID(ctx context.Context, orgID string, exec ...core.DBExecutor) (client.Client, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cl := range repo.db.clients {
		if cl.OrganizationID == orgID {
			return *cl, nil
		}
	}
	return client.Client{}, client.ErrNotFound
}

func (repo *clientRepository) UpdateClient(ctx context.Context, cl *client.Client, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.clients[cl.ID]; !ok {
		return client.ErrNotFound
	}
	cp := *cl
	repo.db.clients[cl.ID] = &cp
	return nil
}

func (repo *clientRepository) DeleteClientsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.clients[id]; ok {
			delete(repo.db.clients, id)
			n++
		}
	}
	return n, nil
}

func (repo *clientRepository) CreateIntake(ctx context.Context, intake *client.Intake, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := *intake
	repo.db.intakes[intake.ID] = &cp
	return nil
}

func (repo *clientRepository) QueryIntakes(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Intake, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	intakes := make([]client.Intake, 0, len(repo.db.intakes))
	for _, in := range repo.db.intakes {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(in.SchoolName), search) &&
				!strings.Contains(strings.ToLower(in.ContactPerson), search) &&
				!strings.Contains(strings.ToLower(in.Email), search) {
				continue
			}
		}
		if filter.OrgID != "" && in.OrganizationID != filter.OrgID {
			continue
		}
		intakes = append(intakes, *in)
	}
	return intakes, nil
}

func (repo *clientRepository) GetIntake(ctx context.Context, id string, exec ...core.DBExecutor) (client.Intake, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if in, ok := repo.db.intakes[id]; ok {
		return *in, nil
	}
	return client.Intake{}, client.ErrNotFound
}

func (repo *clientRepository) UpdateIntake(ctx context.Context, intake *client.Intake, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.intakes[intake.ID]; !ok {
		return client.ErrNotFound
	}
	cp := *intake
	repo.db.intakes[intake.ID] = &cp
	return nil
}

func (repo *clientRepository) DeleteIntakesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.intakes[id]; ok {
			delete(repo.db.intakes, id)
			n++
		}
	}
	return n, nil
}
