package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
)

func Test_projectApi_transition(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")
	require.Equal(t, project.StatusLead, proj.Status)

	transition := func(status string) *json.Decoder {
		body := marchallObj(t, project.NewTransition{Status: status, Reason: "moving along", Notes: "client confirmed by phone"})
		rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/projects/"+proj.ID+"/transition-status", token, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return json.NewDecoder(rec.Body)
	}

	// lead -> quoted -> approved
	require.NoError(t, transition(project.StatusQuoted).Decode(&proj))
	assert.Equal(t, project.StatusQuoted, proj.Status)
	assert.Equal(t, 5, proj.ProgressPercentage)
	require.NoError(t, transition(project.StatusApproved).Decode(&proj))
	assert.Equal(t, project.StatusApproved, proj.Status)
	assert.Equal(t, 10, proj.ProgressPercentage)

	// skipping ahead is rejected
	body := marchallObj(t, project.NewTransition{Status: project.StatusCompleted})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/projects/"+proj.ID+"/transition-status", token, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// every move is on the history, oldest first
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/projects/"+proj.ID+"/history", token))
	require.Equal(t, http.StatusOK, rec.Code)

	var history []project.StatusTransition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, project.StatusLead, history[0].FromStatus)
	assert.Equal(t, project.StatusQuoted, history[0].ToStatus)
	assert.Equal(t, "client confirmed by phone", history[0].Notes)
	assert.Equal(t, staff.ID, history[0].ChangedByID)
	assert.Equal(t, project.StatusApproved, history[1].ToStatus)
}

func Test_projectApi_create(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	seeded := createProject(t, ts, "Seed") // claims PROJ-<year>-001
	cl, err := ts.clientSvc.GetClient(ctxb(), seeded.ClientID)
	require.NoError(t, err)
	contact := createContact(t, ts, seeded, "Grace", "Kanku", "grace@bolingani.cd", true)

	body := marchallObj(t, project.NewProject{
		ClientID:        cl.ID,
		ClientContactID: contact.ID,
		Name:            "Bolingani Portal",
		Objectives:      "give parents a window into enrollment",
		ServiceType:     project.TypePortal,
		Priority:        project.LevelHigh,
		RiskLevel:       project.LevelMedium,
		EstimatedHours:  120,
		Budget:          "USD 4500",
	})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/projects", token, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var proj project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proj))
	assert.Equal(t, fmt.Sprintf("PROJ-%d-002", time.Now().Year()), proj.Code)
	assert.Equal(t, project.TypePortal, proj.ServiceType)
	assert.Equal(t, project.LevelHigh, proj.Priority)
	assert.Equal(t, project.LevelMedium, proj.RiskLevel)
	assert.Equal(t, contact.ID, proj.ClientContactID)
	assert.Equal(t, float64(120), proj.EstimatedHours)
	assert.Equal(t, "USD 4500", proj.Budget)
	assert.Equal(t, "give parents a window into enrollment", proj.Objectives)

	assert.Equal(t, fmt.Sprintf("PROJ-%d-001", time.Now().Year()), seeded.Code)

	// defaults when the optional fields are left out
	body = marchallObj(t, project.NewProject{ClientID: cl.ID, Name: "Bolingani Site"})
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/projects", token, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plain project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	assert.Equal(t, fmt.Sprintf("PROJ-%d-003", time.Now().Year()), plain.Code)
	assert.Equal(t, project.TypeWebDevelopment, plain.ServiceType)
	assert.Equal(t, project.LevelMedium, plain.Priority)
	assert.Equal(t, project.LevelLow, plain.RiskLevel)

	// an unknown service type is rejected
	body = marchallObj(t, project.NewProject{ClientID: cl.ID, Name: "Nope", ServiceType: "consulting"})
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/projects", token, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// listing filters by service type
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/projects?service_type=portal", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, proj.ID, projects[0].ID)
}

func Test_projectApi_statistics(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	contact := createUser(t, ts.userRepo, "Contact", "contact", "contact@sumano.cd", "", user.ClientRoles, true)
	token := getToken(t, staff)

	siteA := createProject(t, ts, "Site A")
	createProject(t, ts, "Site B")

	// a portal project in development, with hours on the clock
	portal, err := ts.projectSvc.Create(ctxb(), project.NewProject{
		ClientID: siteA.ClientID, Name: "Parent Portal",
		ServiceType: project.TypePortal, EstimatedHours: 80,
	})
	require.NoError(t, err)
	for _, status := range []string{
		project.StatusQuoted, project.StatusApproved, project.StatusPlanning, project.StatusDevelopment,
	} {
		_, err = ts.projectSvc.Transition(ctxb(), portal.ID, project.NewTransition{Status: status}, staff.ID)
		require.NoError(t, err)
	}
	_, err = ts.projectSvc.Update(ctxb(), portal.ID, project.UpdateProject{ActualHours: 30})
	require.NoError(t, err)

	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/projects/statistics", getToken(t, contact)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/projects/statistics", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats project.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[project.StatusLead])

	// rolled up per service type
	web := stats.ByServiceType[project.TypeWebDevelopment]
	assert.Equal(t, 2, web.Total)
	assert.Equal(t, 0, web.Active)
	assert.Equal(t, float64(0), web.AvgProgress)

	portalStats := stats.ByServiceType[project.TypePortal]
	assert.Equal(t, 1, portalStats.Total)
	assert.Equal(t, 1, portalStats.Active)
	assert.Equal(t, float64(50), portalStats.AvgProgress)
	assert.Equal(t, float64(80), portalStats.EstimatedHours)
	assert.Equal(t, float64(30), portalStats.ActualHours)
}

func Test_projectApi_update(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")

	body := marchallObj(t, project.UpdateProject{Name: "Bolingani Portal", Description: "now a portal"})
	rec := ts.exec(newAuthRequest(http.MethodPut, "/v1/projects/"+proj.ID, token, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proj))
	assert.Equal(t, "Bolingani Portal", proj.Name)
	assert.Equal(t, "now a portal", proj.Description)
	assert.Equal(t, project.StatusLead, proj.Status) // status only moves via transition
}
