package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/user"
)

func Test_clientApi_submitIntake(t *testing.T) {
	ts := setupServer(t)

	body := marchallObj(t, client.NewIntake{
		SchoolName:         "Lycée Bolingani",
		ContactPerson:      "Mme Kanku",
		Email:              "direction@bolingani.cd",
		ProjectTypes:       []string{"website"},
		ProjectPurposes:    []string{"enrollment"},
		PilotScopeFeatures: []string{"landing_page"},
		TimelinePreference: "3_months",
	})

	// no auth token needed
	rec := ts.exec(newRequest(http.MethodPost, "/v1/intakes", body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var intake client.Intake
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intake))
	assert.NotEmpty(t, intake.ID)
	assert.Equal(t, "Lycée Bolingani", intake.SchoolName)

	// missing required fields are rejected
	rec = ts.exec(newRequest(http.MethodPost, "/v1/intakes", marchallObj(t, client.NewIntake{})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// but listing them is staff-only
	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	contact := createUser(t, ts.userRepo, "Contact", "contact", "contact@sumano.cd", "", user.ClientRoles, true)

	rec = ts.exec(newRequest(http.MethodGet, "/v1/intakes"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/intakes", getToken(t, contact)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/intakes", getToken(t, staff)))
	require.Equal(t, http.StatusOK, rec.Code)

	var intakes []client.Intake
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intakes))
	assert.Len(t, intakes, 1)
}

func Test_clientApi_organizations(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)

	body := marchallObj(t, client.NewOrganization{
		Name:             "Bolingani Group",
		OrganizationType: "educational",
		Email:            "info@bolingani.cd",
	})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/organizations", token, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var org client.Organization
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
	assert.Equal(t, client.OrgStatusProspect, org.Status) // default

	// retrieve
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/organizations/"+org.ID, token))
	require.Equal(t, http.StatusOK, rec.Code)

	// unknown ID
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/organizations/00000000-0000-4000-8000-000000000000", token))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// update
	update := marchallObj(t, client.UpdateOrganization{Name: "Bolingani Group SARL", Status: client.OrgStatusActive})
	rec = ts.exec(newAuthRequest(http.MethodPut, "/v1/organizations/"+org.ID, token, update))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
	assert.Equal(t, "Bolingani Group SARL", org.Name)
	assert.Equal(t, client.OrgStatusActive, org.Status)
}

func Test_clientApi_contacts_primarySwap(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)

	org, err := ts.clientSvc.CreateOrganization(context.Background(), client.NewOrganization{
		Name: "Bolingani Group", OrganizationType: "educational",
	})
	require.NoError(t, err)

	mkContact := func(first, email string, primary bool) client.Contact {
		body := marchallObj(t, client.NewContact{
			OrganizationID:   org.ID,
			FirstName:        first,
			LastName:         "Kanku",
			Email:            email,
			IsPrimaryContact: primary,
		})
		rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/contacts", token, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var c client.Contact
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		return c
	}

	first := mkContact("Grace", "grace@bolingani.cd", true)
	second := mkContact("Didier", "didier@bolingani.cd", true)

	// promoting the second demotes the first
	first, err = ts.clientSvc.GetContact(context.Background(), first.ID)
	require.NoError(t, err)
	assert.False(t, first.IsPrimaryContact)
	assert.True(t, second.IsPrimaryContact)

	// duplicate email within the org is rejected
	body := marchallObj(t, client.NewContact{
		OrganizationID: org.ID, FirstName: "Dup", LastName: "Kanku", Email: "grace@bolingani.cd",
	})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/contacts", token, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_clientApi_contactReadsOwnOrganization(t *testing.T) {
	ts := setupServer(t)

	own, err := ts.clientSvc.CreateOrganization(context.Background(), client.NewOrganization{
		Name: "Bolingani Group", OrganizationType: "educational",
	})
	require.NoError(t, err)
	other, err := ts.clientSvc.CreateOrganization(context.Background(), client.NewOrganization{
		Name: "Mwinda SARL", OrganizationType: "business",
	})
	require.NoError(t, err)

	// Grace has a portal account linked to her contact record
	grace := createUser(t, ts.userRepo, "Grace", "grace", "grace@bolingani.cd", "", user.ClientRoles, true)
	mine, err := ts.clientSvc.CreateContact(context.Background(), client.NewContact{
		OrganizationID: own.ID, FirstName: "Grace", LastName: "Kanku",
		Email: "grace@bolingani.cd", UserID: grace.ID,
	})
	require.NoError(t, err)
	theirs, err := ts.clientSvc.CreateContact(context.Background(), client.NewContact{
		OrganizationID: other.ID, FirstName: "Didier", LastName: "Mwamba",
		Email: "didier@mwinda.cd",
	})
	require.NoError(t, err)

	token := getToken(t, grace)

	// her own organization and its contacts are readable
	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/organizations/"+own.ID, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/contacts/"+mine.ID, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// contact listing is silently scoped to her organization
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/contacts?organization_id="+other.ID, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var contacts []client.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, mine.ID, contacts[0].ID)

	// anything beyond her organization is off limits
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/organizations/"+other.ID, token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/contacts/"+theirs.ID, token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/organizations", token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.exec(newAuthRequest(http.MethodPut, "/v1/organizations/"+own.ID, token,
		marchallObj(t, client.UpdateOrganization{Name: "Renamed"})))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a portal account with no contact record sees nothing
	stray := createUser(t, ts.userRepo, "Stray", "stray", "stray@sumano.cd", "", user.ClientRoles, true)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/organizations/"+own.ID, getToken(t, stray)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_clientApi_clients(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)

	org, err := ts.clientSvc.CreateOrganization(context.Background(), client.NewOrganization{
		Name: "Bolingani Group", OrganizationType: "educational",
	})
	require.NoError(t, err)

	body := marchallObj(t, map[string]interface{}{
		"organization_id": org.ID,
		"client_since":    "2026-01-15T00:00:00Z",
	})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/clients", token, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// one client profile per organization
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/clients", token, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
