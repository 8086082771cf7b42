package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrContactEmail = errors.New("a contact with this email already exists for this organization")
	ErrOrgHasClient = errors.New("organization already has a client profile")
)

type Repository interface {
	CreateOrganization(ctx context.Context, org *Organization, exec ...core.DBExecutor) error
	QueryOrganizations(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Organization, error)
	GetOrganization(ctx context.Context, id string, exec ...core.DBExecutor) (Organization, error)
	UpdateOrganization(ctx context.Context, org *Organization, exec ...core.DBExecutor) error
	DeleteOrganizationsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

	CheckContactUniqueness(ctx context.Context, orgID, email string, exclude []Contact, exec ...core.DBExecutor) error
	CreateContact(ctx context.Context, contact *Contact, exec ...core.DBExecutor) error
	QueryContacts(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Contact, error)
	GetContact(ctx context.Context, id string, exec ...core.DBExecutor) (Contact, error)
	GetContactByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Contact, error)
	UpdateContact(ctx context.Context, contact *Contact, exec ...core.DBExecutor) error
	DeleteContactsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	ClearPrimaryContact(ctx context.Context, orgID string, exec ...core.DBExecutor) error

	CreateClient(ctx context.Context, client *Client, exec ...core.DBExecutor) error
	QueryClients(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Client, error)
	GetClient(ctx context.Context, id string, exec ...core.DBExecutor) (Client, error)
	GetClientByOrgID(ctx context.Context, orgID string, exec ...core.DBExecutor) (Client, error)
	UpdateClient(ctx context.Context, client *Client, exec ...core.DBExecutor) error
	DeleteClientsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

	CreateIntake(ctx context.Context, intake *Intake, exec ...core.DBExecutor) error
	QueryIntakes(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Intake, error)
	GetIntake(ctx context.Context, id string, exec ...core.DBExecutor) (Intake, error)
	UpdateIntake(ctx context.Context, intake *Intake, exec ...core.DBExecutor) error
	DeleteIntakesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
}

type ServiceInterface interface {
	CheckContactUniqueness(orgID, email string, exclude ...Contact) error

	CreateOrganization(ctx context.Context, no NewOrganization) (Organization, error)
	QueryOrganizations(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)
	UpdateOrganization(ctx context.Context, id string, uo UpdateOrganization) (Organization, error)
	DeleteOrganizations(ctx context.Context, ids ...string) error

	CreateContact(ctx context.Context, nc NewContact) (Contact, error)
	QueryContacts(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Contact, error)
	GetContact(ctx context.Context, id string) (Contact, error)
	GetContactByUserID(ctx context.Context, userID string) (Contact, error)
	UpdateContact(ctx context.Context, id string, uc UpdateContact) (Contact, error)
	DeleteContacts(ctx context.Context, ids ...string) error

	CreateClient(ctx context.Context, nc NewClient) (Client, error)
	QueryClients(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Client, error)
	GetClient(ctx context.Context, id string) (Client, error)
	UpdateClient(ctx context.Context, id string, uc UpdateClient) (Client, error)
	DeleteClients(ctx context.Context, ids ...string) error

	SubmitIntake(ctx context.Context, ni NewIntake) (Intake, error)
	QueryIntakes(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Intake, error)
	GetIntake(ctx context.Context, id string) (Intake, error)
	DeleteIntakes(ctx context.Context, ids ...string) error
}

type Service struct {
	db   core.DB
	repo Repository
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) CheckContactUniqueness(orgID, email string, exclude ...Contact) error {
	err := svc.repo.CheckContactUniqueness(context.Background(), orgID, email, exclude)
	if errors.Is(err, ErrContactEmail) {
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
	}
	return err
}

func (svc *Service) CreateOrganization(ctx context.Context, no NewOrganization) (Organization, error) {
	now := time.Now()
	org := Organization{
		ID:               uuid.New().String(),
		Name:             no.Name,
		LegalName:        no.LegalName,
		OrganizationType: no.OrganizationType,
		Industry:         no.Industry,
		Website:          no.Website,
		Description:      no.Description,
		Phone:            no.Phone,
		Email:            no.Email,
		AddressLine1:     no.AddressLine1,
		AddressLine2:     no.AddressLine2,
		City:             no.City,
		StateProvince:    no.StateProvince,
		PostalCode:       no.PostalCode,
		Country:          no.Country,
		Status:           no.Status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := svc.repo.CreateOrganization(ctx, &org); err != nil {
		return Organization{}, errors.Wrap(err, "creating organization")
	}
	return org, nil
}

func (svc *Service) QueryOrganizations(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Organization, error) {
	filter.Clean()
	return svc.repo.QueryOrganizations(ctx, filter, ordering)
}

func (svc *Service) GetOrganization(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganization(ctx, id)
}

func (svc *Service) UpdateOrganization(ctx context.Context, id string, uo UpdateOrganization) (Organization, error) {
	org, err := svc.repo.GetOrganization(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	if uo.Name != "" {
		org.Name = uo.Name
	}
	if uo.OrganizationType != "" {
		org.OrganizationType = uo.OrganizationType
	}
	if uo.Status != "" {
		org.Status = uo.Status
	}
	org.LegalName = uo.LegalName
	org.Industry = uo.Industry
	org.Website = uo.Website
	org.Description = uo.Description
	org.Phone = uo.Phone
	org.Email = uo.Email
	org.AddressLine1 = uo.AddressLine1
	org.AddressLine2 = uo.AddressLine2
	org.City = uo.City
	org.StateProvince = uo.StateProvince
	org.PostalCode = uo.PostalCode
	org.Country = uo.Country
	org.UpdatedAt = time.Now()

	if err = svc.repo.UpdateOrganization(ctx, &org); err != nil {
		return Organization{}, errors.Wrap(err, "updating organization")
	}
	return org, nil
}

func (svc *Service) DeleteOrganizations(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteOrganizationsByID(ctx, ids)
	return err
}

func (svc *Service) CreateContact(ctx context.Context, nc NewContact) (Contact, error) {
	if _, err := svc.repo.GetOrganization(ctx, nc.OrganizationID); err != nil {
		return Contact{}, err
	}

	now := time.Now()
	contact := Contact{
		ID:               uuid.New().String(),
		OrganizationID:   nc.OrganizationID,
		FirstName:        nc.FirstName,
		LastName:         nc.LastName,
		Title:            nc.Title,
		Department:       nc.Department,
		Email:            nc.Email,
		Phone:            nc.Phone,
		Mobile:           nc.Mobile,
		RoleType:         nc.RoleType,
		IsPrimaryContact: nc.IsPrimaryContact,
		UserID:           nc.UserID,
		Status:           OrgStatusActive,
		Notes:            nc.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// only one primary contact per organization
	err := svc.db.Transaction(ctx, func(tx core.DBExecutor) error {
		if contact.IsPrimaryContact {
			if err := svc.repo.ClearPrimaryContact(ctx, contact.OrganizationID, tx); err != nil {
				return err
			}
		}
		return svc.repo.CreateContact(ctx, &contact, tx)
	})
	if err != nil {
		return Contact{}, errors.Wrap(err, "creating contact")
	}
	return contact, nil
}

func (svc *Service) QueryContacts(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Contact, error) {
	filter.Clean()
	return svc.repo.QueryContacts(ctx, filter, ordering)
}

func (svc *Service) GetContact(ctx context.Context, id string) (Contact, error) {
	return svc.repo.GetContact(ctx, id)
}

func (svc *Service) GetContactByUserID(ctx context.Context, userID string) (Contact, error) {
	return svc.repo.GetContactByUserID(ctx, userID)
}

func (svc *Service) UpdateContact(ctx context.Context, id string, uc UpdateContact) (Contact, error) {
	contact, err := svc.repo.GetContact(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	if uc.FirstName != "" {
		contact.FirstName = uc.FirstName
	}
	if uc.LastName != "" {
		contact.LastName = uc.LastName
	}
	if uc.Email != "" {
		contact.Email = uc.Email
	}
	if uc.RoleType != "" {
		contact.RoleType = uc.RoleType
	}
	if uc.Status != "" {
		contact.Status = uc.Status
	}
	if uc.UserID != "" {
		contact.UserID = uc.UserID
	}
	contact.Title = uc.Title
	contact.Department = uc.Department
	contact.Phone = uc.Phone
	contact.Mobile = uc.Mobile
	contact.Notes = uc.Notes

	promote := uc.IsPrimaryContact != nil && *uc.IsPrimaryContact && !contact.IsPrimaryContact
	if uc.IsPrimaryContact != nil {
		contact.IsPrimaryContact = *uc.IsPrimaryContact
	}
	contact.UpdatedAt = time.Now()

	err = svc.db.Transaction(ctx, func(tx core.DBExecutor) error {
		if promote {
			if err := svc.repo.ClearPrimaryContact(ctx, contact.OrganizationID, tx); err != nil {
				return err
			}
		}
		return svc.repo.UpdateContact(ctx, &contact, tx)
	})
	if err != nil {
		return Contact{}, errors.Wrap(err, "updating contact")
	}
	return contact, nil
}

func (svc *Service) DeleteContacts(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteContactsByID(ctx, ids)
	return err
}

func (svc *Service) CreateClient(ctx context.Context, nc NewClient) (Client, error) {
	if _, err := svc.repo.GetOrganization(ctx, nc.OrganizationID); err != nil {
		return Client{}, err
	}
	if _, err := svc.repo.GetClientByOrgID(ctx, nc.OrganizationID); err == nil {
		return Client{}, core.NewValidationError(ErrOrgHasClient, core.FieldError{
			Field: "organization_id", Error: ErrOrgHasClient.Error(),
		})
	} else if !errors.Is(err, ErrNotFound) {
		return Client{}, err
	}

	now := time.Now()
	client := Client{
		ID:                 uuid.New().String(),
		OrganizationID:     nc.OrganizationID,
		ClientSince:        nc.ClientSince,
		RelationshipStatus: nc.RelationshipStatus,
		ContractType:       nc.ContractType,
		BillingContactID:   nc.BillingContactID,
		Notes:              nc.Notes,
		InternalRating:     nc.InternalRating,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := svc.repo.CreateClient(ctx, &client); err != nil {
		return Client{}, errors.Wrap(err, "creating client")
	}
	return client, nil
}

func (svc *Service) QueryClients(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Client, error) {
	filter.Clean()
	return svc.repo.QueryClients(ctx, filter, ordering)
}

func (svc *Service) GetClient(ctx context.Context, id string) (Client, error) {
	return svc.repo.GetClient(ctx, id)
}

func (svc *Service) UpdateClient(ctx context.Context, id string, uc UpdateClient) (Client, error) {
	client, err := svc.repo.GetClient(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if uc.RelationshipStatus != "" {
		client.RelationshipStatus = uc.RelationshipStatus
	}
	if uc.ContractType != "" {
		client.ContractType = uc.ContractType
	}
	if uc.InternalRating > 0 {
		client.InternalRating = uc.InternalRating
	}
	client.BillingContactID = uc.BillingContactID
	client.Notes = uc.Notes
	client.UpdatedAt = time.Now()

	if err = svc.repo.UpdateClient(ctx, &client); err != nil {
		return Client{}, errors.Wrap(err, "updating client")
	}
	return client, nil
}

func (svc *Service) DeleteClients(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteClientsByID(ctx, ids)
	return err
}

func (svc *Service) SubmitIntake(ctx context.Context, ni NewIntake) (Intake, error) {
	now := time.Now()
	intake := Intake{
		ID:                  uuid.New().String(),
		OrganizationID:      ni.OrganizationID,
		SchoolName:          ni.SchoolName,
		Address:             ni.Address,
		ContactPerson:       ni.ContactPerson,
		RolePosition:        ni.RolePosition,
		PhoneWhatsapp:       ni.PhoneWhatsapp,
		Email:               ni.Email,
		CurrentWebsite:      ni.CurrentWebsite,
		NumberOfStudents:    ni.NumberOfStudents,
		NumberOfStaff:       ni.NumberOfStaff,
		ProjectTypes:        ni.ProjectTypes,
		ProjectPurposes:     ni.ProjectPurposes,
		PilotScopeFeatures:  ni.PilotScopeFeatures,
		PilotStartDate:      ni.PilotStartDate,
		PilotEndDate:        ni.PilotEndDate,
		TimelinePreference:  ni.TimelinePreference,
		DesignPreferences:   ni.DesignPreferences,
		LogoColors:          ni.LogoColors,
		ContentAvailability: ni.ContentAvailability,
		MaintenancePlan:     ni.MaintenancePlan,
		TokenCommitmentFee:  ni.TokenCommitmentFee,
		AdditionalNotes:     ni.AdditionalNotes,
		Acknowledgment:      ni.Acknowledgment,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := svc.repo.CreateIntake(ctx, &intake); err != nil {
		return Intake{}, errors.Wrap(err, "creating intake")
	}
	return intake, nil
}

func (svc *Service) QueryIntakes(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Intake, error) {
	filter.Clean()
	return svc.repo.QueryIntakes(ctx, filter, ordering)
}

func (svc *Service) GetIntake(ctx context.Context, id string) (Intake, error) {
	return svc.repo.GetIntake(ctx, id)
}

func (svc *Service) DeleteIntakes(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteIntakesByID(ctx, ids)
	return err
}
