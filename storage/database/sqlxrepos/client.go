package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/client"
)

type organizationRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	LegalName        string    `db:"legal_name"`
	OrganizationType string    `db:"organization_type"`
	Industry         string    `db:"industry"`
	Website          string    `db:"website"`
	Description      string    `db:"description"`
	Phone            string    `db:"phone"`
	Email            string    `db:"email"`
	AddressLine1     string    `db:"address_line1"`
	AddressLine2     string    `db:"address_line2"`
	City             string    `db:"city"`
	StateProvince    string    `db:"state_province"`
	PostalCode       string    `db:"postal_code"`
	Country          string    `db:"country"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r organizationRow) toOrganization() client.Organization {
	return client.Organization(r)
}

const organizationCols = `id, name, legal_name, organization_type, industry, website, description,
	phone, email, address_line1, address_line2, city, state_province, postal_code, country,
	status, created_at, updated_at`

type contactRow struct {
	ID               string      `db:"id"`
	OrganizationID   string      `db:"organization_id"`
	FirstName        string      `db:"first_name"`
	LastName         string      `db:"last_name"`
	Title            string      `db:"title"`
	Department       string      `db:"department"`
	Email            string      `db:"email"`
	Phone            string      `db:"phone"`
	Mobile           string      `db:"mobile"`
	RoleType         string      `db:"role_type"`
	IsPrimaryContact bool        `db:"is_primary_contact"`
	Status           string      `db:"status"`
	Notes            string      `db:"notes"`
	UserID           null.String `db:"user_id"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (r contactRow) toContact() client.Contact {
	return client.Contact{
		ID:               r.ID,
		OrganizationID:   r.OrganizationID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Title:            r.Title,
		Department:       r.Department,
		Email:            r.Email,
		Phone:            r.Phone,
		Mobile:           r.Mobile,
		RoleType:         r.RoleType,
		IsPrimaryContact: r.IsPrimaryContact,
		Status:           r.Status,
		Notes:            r.Notes,
		UserID:           r.UserID.String,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func newContactRow(c client.Contact) contactRow {
	return contactRow{
		ID:               c.ID,
		OrganizationID:   c.OrganizationID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Title:            c.Title,
		Department:       c.Department,
		Email:            c.Email,
		Phone:            c.Phone,
		Mobile:           c.Mobile,
		RoleType:         c.RoleType,
		IsPrimaryContact: c.IsPrimaryContact,
		Status:           c.Status,
		Notes:            c.Notes,
		UserID:           null.NewString(c.UserID, c.UserID != ""),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

const contactCols = `id, organization_id, first_name, last_name, title, department, email, phone,
	mobile, role_type, is_primary_contact, status, notes, user_id, created_at, updated_at`

type clientRow struct {
	ID                 string      `db:"id"`
	OrganizationID     string      `db:"organization_id"`
	ClientSince        time.Time   `db:"client_since"`
	RelationshipStatus string      `db:"relationship_status"`
	ContractType       string      `db:"contract_type"`
	BillingContactID   null.String `db:"billing_contact_id"`
	Notes              string      `db:"notes"`
	InternalRating     int         `db:"internal_rating"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (r clientRow) toClient() client.Client {
	return client.Client{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID,
		ClientSince:        r.ClientSince,
		RelationshipStatus: r.RelationshipStatus,
		ContractType:       r.ContractType,
		BillingContactID:   r.BillingContactID.String,
		Notes:              r.Notes,
		InternalRating:     r.InternalRating,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newClientRow(c client.Client) clientRow {
	return clientRow{
		ID:                 c.ID,
		OrganizationID:     c.OrganizationID,
		ClientSince:        c.ClientSince,
		RelationshipStatus: c.RelationshipStatus,
		ContractType:       c.ContractType,
		BillingContactID:   null.NewString(c.BillingContactID, c.BillingContactID != ""),
		Notes:              c.Notes,
		InternalRating:     c.InternalRating,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

const clientCols = `id, organization_id, client_since, relationship_status, contract_type,
	billing_contact_id, notes, internal_rating, created_at, updated_at`

type intakeRow struct {
	ID                  string         `db:"id"`
	OrganizationID      null.String    `db:"organization_id"`
	SchoolName          string         `db:"school_name"`
	Address             string         `db:"address"`
	ContactPerson       string         `db:"contact_person"`
	RolePosition        string         `db:"role_position"`
	PhoneWhatsapp       string         `db:"phone_whatsapp"`
	Email               string         `db:"email"`
	CurrentWebsite      string         `db:"current_website"`
	NumberOfStudents    int            `db:"number_of_students"`
	NumberOfStaff       int            `db:"number_of_staff"`
	ProjectTypes        pq.StringArray `db:"project_type"`
	ProjectPurposes     pq.StringArray `db:"project_purpose"`
	PilotScopeFeatures  pq.StringArray `db:"pilot_scope_features"`
	PilotStartDate      null.Time      `db:"pilot_start_date"`
	PilotEndDate        null.Time      `db:"pilot_end_date"`
	TimelinePreference  string         `db:"timeline_preference"`
	DesignPreferences   []byte         `db:"design_preferences"`
	LogoColors          []byte         `db:"logo_colors"`
	ContentAvailability bool           `db:"content_availability"`
	MaintenancePlan     []byte         `db:"maintenance_plan"`
	TokenCommitmentFee  string         `db:"token_commitment_fee"`
	AdditionalNotes     string         `db:"additional_notes"`
	Acknowledgment      []byte         `db:"acknowledgment"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (r intakeRow) toIntake() (client.Intake, error) {
	in := client.Intake{
		ID:                  r.ID,
		OrganizationID:      r.OrganizationID.String,
		SchoolName:          r.SchoolName,
		Address:             r.Address,
		ContactPerson:       r.ContactPerson,
		RolePosition:        r.RolePosition,
		PhoneWhatsapp:       r.PhoneWhatsapp,
		Email:               r.Email,
		CurrentWebsite:      r.CurrentWebsite,
		NumberOfStudents:    r.NumberOfStudents,
		NumberOfStaff:       r.NumberOfStaff,
		ProjectTypes:        r.ProjectTypes,
		ProjectPurposes:     r.ProjectPurposes,
		PilotScopeFeatures:  r.PilotScopeFeatures,
		PilotStartDate:      r.PilotStartDate.Time,
		PilotEndDate:        r.PilotEndDate.Time,
		TimelinePreference:  r.TimelinePreference,
		ContentAvailability: r.ContentAvailability,
		TokenCommitmentFee:  r.TokenCommitmentFee,
		AdditionalNotes:     r.AdditionalNotes,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if err := fromJSON(r.DesignPreferences, &in.DesignPreferences); err != nil {
		return in, err
	}
	if err := fromJSON(r.LogoColors, &in.LogoColors); err != nil {
		return in, err
	}
	if err := fromJSON(r.MaintenancePlan, &in.MaintenancePlan); err != nil {
		return in, err
	}
	if err := fromJSON(r.Acknowledgment, &in.Acknowledgment); err != nil {
		return in, err
	}
	return in, nil
}

func newIntakeRow(in client.Intake) intakeRow {
	return intakeRow{
		ID:                  in.ID,
		OrganizationID:      null.NewString(in.OrganizationID, in.OrganizationID != ""),
		SchoolName:          in.SchoolName,
		Address:             in.Address,
		ContactPerson:       in.ContactPerson,
		RolePosition:        in.RolePosition,
		PhoneWhatsapp:       in.PhoneWhatsapp,
		Email:               in.Email,
		CurrentWebsite:      in.CurrentWebsite,
		NumberOfStudents:    in.NumberOfStudents,
		NumberOfStaff:       in.NumberOfStaff,
		ProjectTypes:        in.ProjectTypes,
		ProjectPurposes:     in.ProjectPurposes,
		PilotScopeFeatures:  in.PilotScopeFeatures,
		PilotStartDate:      null.NewTime(in.PilotStartDate, !in.PilotStartDate.IsZero()),
		PilotEndDate:        null.NewTime(in.PilotEndDate, !in.PilotEndDate.IsZero()),
		TimelinePreference:  in.TimelinePreference,
		DesignPreferences:   mustJSON(in.DesignPreferences),
		LogoColors:          mustJSON(in.LogoColors),
		ContentAvailability: in.ContentAvailability,
		MaintenancePlan:     mustJSON(in.MaintenancePlan),
		TokenCommitmentFee:  in.TokenCommitmentFee,
		AdditionalNotes:     in.AdditionalNotes,
		Acknowledgment:      mustJSON(in.Acknowledgment),
		CreatedAt:           in.CreatedAt,
		UpdatedAt:           in.UpdatedAt,
	}
}

const intakeCols = `id, organization_id, school_name, address, contact_person, role_position,
	phone_whatsapp, email, current_website, number_of_students, number_of_staff, project_type,
	project_purpose, pilot_scope_features, pilot_start_date, pilot_end_date, timeline_preference,
	design_preferences, logo_colors, content_availability, maintenance_plan, token_commitment_fee,
	additional_notes, acknowledgment, created_at, updated_at`

type clientRepository struct {
	db core.DB
}

var _ client.Repository = (*clientRepository)(nil)

func NewClientRepository(db core.DB) client.Repository {
	return &clientRepository{db: db}
}

func (repo *clientRepository) CreateOrganization(ctx context.Context, org *client.Organization, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO organization (` + organizationCols + `)
		VALUES (:id, :name, :legal_name, :organization_type, :industry, :website, :description,
			:phone, :email, :address_line1, :address_line2, :city, :state_province, :postal_code,
			:country, :status, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, organizationRow(*org))
	return errors.Wrap(err, "creating organization")
}

func (repo *clientRepository) QueryOrganizations(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Organization, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR legal_name ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}

	q := `SELECT ` + organizationCols + ` FROM organization` + whereClause(conds) + orderBy(ordering, "name ASC")
	var rows []organizationRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying organizations")
	}
	orgs := make([]client.Organization, len(rows))
	for i, row := range rows {
		orgs[i] = row.toOrganization()
	}
	return orgs, nil
}

func (repo *clientRepository) GetOrganization(ctx context.Context, id string, exec ...core.DBExecutor) (client.Organization, error) {
	ex := executor(repo.db, exec)
	var row organizationRow
	q := `SELECT ` + organizationCols + ` FROM organization WHERE id = $1`
	if err := ex.GetContext(ctx, &row, q, id); err != nil {
		return client.Organization{}, trapNoRowsErr(err, client.ErrNotFound, "getting organization")
	}
	return row.toOrganization(), nil
}

func (repo *clientRepository) UpdateOrganization(ctx context.Context, org *client.Organization, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE organization
		SET name = :name, legal_name = :legal_name, organization_type = :organization_type,
			industry = :industry, website = :website, description = :description, phone = :phone,
			email = :email, address_line1 = :address_line1, address_line2 = :address_line2,
			city = :city, state_province = :state_province, postal_code = :postal_code,
			country = :country, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, organizationRow(*org))
	if err != nil {
		return errors.Wrap(err, "updating organization")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (repo *clientRepository) DeleteOrganizationsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "organization", ids)
}

func (repo *clientRepository) CheckContactUniqueness(ctx context.Context, orgID, email string, exclude []client.Contact, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	exclIDs := make(pq.StringArray, len(exclude))
	for i, c := range exclude {
		exclIDs[i] = c.ID
	}
	var exists bool
	q := `
		SELECT EXISTS (
			SELECT 1 FROM contact
			WHERE organization_id = $1 AND lower(email) = lower($2) AND NOT (id = ANY($3))
		)`
	if err := ex.GetContext(ctx, &exists, q, orgID, email, exclIDs); err != nil {
		return errors.Wrap(err, "checking contact uniqueness")
	}
	if exists {
		return client.ErrContactEmail
	}
	return nil
}

func (repo *clientRepository) CreateContact(ctx context.Context, contact *client.Contact, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO contact (` + contactCols + `)
		VALUES (:id, :organization_id, :first_name, :last_name, :title, :department, :email,
			:phone, :mobile, :role_type, :is_primary_contact, :status, :notes, :user_id,
			:created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newContactRow(*contact))
	return errors.Wrap(err, "creating contact")
}

func (repo *clientRepository) QueryContacts(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Contact, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.OrgID != "" {
		conds = append(conds, "organization_id = "+arg(filter.OrgID))
	}
	if filter.RoleType != "" {
		conds = append(conds, "role_type = "+arg(filter.RoleType))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}

	q := `SELECT ` + contactCols + ` FROM contact` + whereClause(conds) + orderBy(ordering, "last_name ASC, first_name ASC")
	var rows []contactRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying contacts")
	}
	contacts := make([]client.Contact, len(rows))
	for i, row := range rows {
		contacts[i] = row.toContact()
	}
	return contacts, nil
}

func (repo *clientRepository) GetContact(ctx context.Context, id string, exec ...core.DBExecutor) (client.Contact, error) {
	ex := executor(repo.db, exec)
	var row contactRow
	if err := ex.GetContext(ctx, &row, `SELECT `+contactCols+` FROM contact WHERE id = $1`, id); err != nil {
		return client.Contact{}, trapNoRowsErr(err, client.ErrNotFound, "getting contact")
	}
	return row.toContact(), nil
}

func (repo *clientRepository) GetContactByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (client.Contact, error) {
	ex := executor(repo.db, exec)
	var row contactRow
	if err := ex.GetContext(ctx, &row, `SELECT `+contactCols+` FROM contact WHERE user_id = $1`, userID); err != nil {
		return client.Contact{}, trapNoRowsErr(err, client.ErrNotFound, "getting contact by user")
	}
	return row.toContact(), nil
}

func (repo *clientRepository) UpdateContact(ctx context.Context, contact *client.Contact, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE contact
		SET first_name = :first_name, last_name = :last_name, title = :title,
			department = :department, email = :email, phone = :phone, mobile = :mobile,
			role_type = :role_type, is_primary_contact = :is_primary_contact, status = :status,
			notes = :notes, user_id = :user_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newContactRow(*contact))
	if err != nil {
		return errors.Wrap(err, "updating contact")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (repo *clientRepository) DeleteContactsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "contact", ids)
}

func (repo *clientRepository) ClearPrimaryContact(ctx context.Context, orgID string, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	_, err := ex.ExecContext(ctx,
		`UPDATE contact SET is_primary_contact = false WHERE organization_id = $1 AND is_primary_contact`, orgID)
	return errors.Wrap(err, "clearing primary contact")
}

func (repo *clientRepository) CreateClient(ctx context.Context, c *client.Client, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO client (` + clientCols + `)
		VALUES (:id, :organization_id, :client_since, :relationship_status, :contract_type,
			:billing_contact_id, :notes, :internal_rating, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newClientRow(*c))
	return errors.Wrap(err, "creating client")
}

func (repo *clientRepository) QueryClients(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Client, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		conds = append(conds, "relationship_status = "+arg(filter.Status))
	}
	if filter.OrgID != "" {
		conds = append(conds, "organization_id = "+arg(filter.OrgID))
	}

	q := `SELECT ` + clientCols + ` FROM client` + whereClause(conds) + orderBy(ordering, "client_since DESC")
	var rows []clientRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying clients")
	}
	clients := make([]client.Client, len(rows))
	for i, row := range rows {
		clients[i] = row.toClient()
	}
	return clients, nil
}

func (repo *clientRepository) GetClient(ctx context.Context, id string, exec ...core.DBExecutor) (client.Client, error) {
	ex := executor(repo.db, exec)
	var row clientRow
	if err := ex.GetContext(ctx, &row, `SELECT `+clientCols+` FROM client WHERE id = $1`, id); err != nil {
		return client.Client{}, trapNoRowsErr(err, client.ErrNotFound, "getting client")
	}
	return row.toClient(), nil
}

func (repo *clientRepository) GetClientByOrgID(ctx context.Context, orgID string, exec ...core.DBExecutor) (client.Client, error) {
	ex := executor(repo.db, exec)
	var row clientRow
	if err := ex.GetContext(ctx, &row, `SELECT `+clientCols+` FROM client WHERE organization_id = $1`, orgID); err != nil {
		return client.Client{}, trapNoRowsErr(err, client.ErrNotFound, "getting client by organization")
	}
	return row.toClient(), nil
}

func (repo *clientRepository) UpdateClient(ctx context.Context, c *client.Client, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE client
		SET relationship_status = :relationship_status, contract_type = :contract_type,
			billing_contact_id = :billing_contact_id, notes = :notes,
			internal_rating = :internal_rating, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newClientRow(*c))
	if err != nil {
		return errors.Wrap(err, "updating client")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (repo *clientRepository) DeleteClientsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "client", ids)
}

func (repo *clientRepository) CreateIntake(ctx context.Context, intake *client.Intake, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO intake (` + intakeCols + `)
		VALUES (:id, :organization_id, :school_name, :address, :contact_person, :role_position,
			:phone_whatsapp, :email, :current_website, :number_of_students, :number_of_staff,
			:project_type, :project_purpose, :pilot_scope_features, :pilot_start_date,
			:pilot_end_date, :timeline_preference, :design_preferences, :logo_colors,
			:content_availability, :maintenance_plan, :token_commitment_fee, :additional_notes,
			:acknowledgment, :created_at, :updated_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newIntakeRow(*intake))
	return errors.Wrap(err, "creating intake")
}

func (repo *clientRepository) QueryIntakes(ctx context.Context, filter client.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]client.Intake, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(school_name ILIKE %[1]s OR contact_person ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.OrgID != "" {
		conds = append(conds, "organization_id = "+arg(filter.OrgID))
	}

	q := `SELECT ` + intakeCols + ` FROM intake` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []intakeRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying intakes")
	}
	intakes := make([]client.Intake, len(rows))
	for i, row := range rows {
		in, err := row.toIntake()
		if err != nil {
			return nil, errors.Wrap(err, "decoding intake")
		}
		intakes[i] = in
	}
	return intakes, nil
}

func (repo *clientRepository) GetIntake(ctx context.Context, id string, exec ...core.DBExecutor) (client.Intake, error) {
	ex := executor(repo.db, exec)
	var row intakeRow
	if err := ex.GetContext(ctx, &row, `SELECT `+intakeCols+` FROM intake WHERE id = $1`, id); err != nil {
		return client.Intake{}, trapNoRowsErr(err, client.ErrNotFound, "getting intake")
	}
	in, err := row.toIntake()
	return in, errors.Wrap(err, "decoding intake")
}

func (repo *clientRepository) UpdateIntake(ctx context.Context, intake *client.Intake, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		UPDATE intake
		SET organization_id = :organization_id, school_name = :school_name, address = :address,
			contact_person = :contact_person, role_position = :role_position,
			phone_whatsapp = :phone_whatsapp, email = :email, current_website = :current_website,
			number_of_students = :number_of_students, number_of_staff = :number_of_staff,
			project_type = :project_type, project_purpose = :project_purpose,
			pilot_scope_features = :pilot_scope_features, pilot_start_date = :pilot_start_date,
			pilot_end_date = :pilot_end_date, timeline_preference = :timeline_preference,
			design_preferences = :design_preferences, logo_colors = :logo_colors,
			content_availability = :content_availability, maintenance_plan = :maintenance_plan,
			token_commitment_fee = :token_commitment_fee, additional_notes = :additional_notes,
			acknowledgment = :acknowledgment, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlxNamedExec(ctx, ex, q, newIntakeRow(*intake))
	if err != nil {
		return errors.Wrap(err, "updating intake")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return client.ErrNotFound
	}
	return nil
}

func (repo *clientRepository) DeleteIntakesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	return deleteByID(ctx, executor(repo.db, exec), "intake", ids)
}
