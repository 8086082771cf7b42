package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/handover"
	"github.com/sumano/oms/core/user"
	emailsvc "github.com/sumano/oms/services/email"
)

func fullChecklist() handover.Checklist {
	cl := handover.NewChecklist()
	for _, section := range handover.SectionOrder {
		for _, item := range handover.SectionItems(section) {
			cl[section][item] = true
		}
	}
	return cl
}

func Test_handoverApi_checklistWorkflow(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Mokanda School Site")

	do := func(method, path string, body []byte, wantCode int) handover.Handover {
		t.Helper()
		rec := ts.exec(newAuthRequest(method, path, token, body))
		require.Equal(t, wantCode, rec.Code, rec.Body.String())
		var h handover.Handover
		if rec.Code < 300 {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
		}
		return h
	}

	body := marchallObj(t, handover.NewHandover{ProjectID: proj.ID})
	h := do(http.MethodPost, "/v1/handovers", body, http.StatusCreated)
	assert.Equal(t, handover.DecisionPending, h.GoNoGoDecision)
	assert.Zero(t, h.CompletionPercentage)
	assert.Len(t, h.Checklist, len(handover.SectionOrder))

	// one checklist per project
	do(http.MethodPost, "/v1/handovers", body, http.StatusBadRequest)
	// and the project must exist
	do(http.MethodPost, "/v1/handovers", marchallObj(t, handover.NewHandover{ProjectID: uuid.New().String()}), http.StatusNotFound)

	base := "/v1/handovers/" + h.ID

	body = marchallObj(t, handover.UpdateChecklist{
		Items: handover.Checklist{
			handover.SectionTechnicalSetup: {
				"domain_configured": true, "ssl_active": true, "site_load_ok": true,
				"responsive_design": true, "no_broken_links": true,
			},
		},
		SectionNotes: map[string]string{handover.SectionTechnicalSetup: "DNS moved to new registrar"},
	})
	h = do(http.MethodPut, base+"/checklist", body, http.StatusOK)
	assert.InDelta(t, 20.0, h.CompletionPercentage, .1) // 5 of 25 items
	assert.Equal(t, "DNS moved to new registrar", h.SectionNotes[handover.SectionTechnicalSetup])

	// unknown items are rejected
	body = marchallObj(t, handover.UpdateChecklist{
		Items: handover.Checklist{handover.SectionCorePages: {"blog_launched": true}},
	})
	do(http.MethodPut, base+"/checklist", body, http.StatusBadRequest)

	// approval needs a complete checklist; a hold does not
	do(http.MethodPost, base+"/decision", marchallObj(t, handover.NewDecision{Decision: handover.DecisionApproved}), http.StatusBadRequest)
	h = do(http.MethodPost, base+"/decision", marchallObj(t, handover.NewDecision{Decision: handover.DecisionHold, Notes: "SSL pending"}), http.StatusOK)
	assert.Equal(t, handover.DecisionHold, h.GoNoGoDecision)
	assert.Equal(t, staff.ID, h.ReviewedByID)
	assert.False(t, h.ReviewedAt.IsZero())

	h = do(http.MethodPut, base+"/checklist", marchallObj(t, handover.UpdateChecklist{Items: fullChecklist()}), http.StatusOK)
	assert.Equal(t, float64(100), h.CompletionPercentage)

	h = do(http.MethodPost, base+"/decision", marchallObj(t, handover.NewDecision{Decision: handover.DecisionApproved}), http.StatusOK)
	assert.Equal(t, handover.DecisionApproved, h.GoNoGoDecision)

	// approval is final
	rec := ts.exec(newAuthRequest(http.MethodPost, base+"/decision", token, marchallObj(t, handover.NewDecision{Decision: handover.DecisionHold})))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: handover.ErrAlreadyDecided.Error()})}, rec)
	// and freezes the checklist
	do(http.MethodPut, base+"/checklist", marchallObj(t, handover.UpdateChecklist{Items: handover.NewChecklist()}), http.StatusBadRequest)

	got := do(http.MethodGet, "/v1/projects/"+proj.ID+"/handover", nil, http.StatusOK)
	assert.Equal(t, h.ID, got.ID)

	// client contacts have no business here
	contact := createUser(t, ts.userRepo, "Contact", "contact", "contact@bolingani.cd", "", user.ClientRoles, true)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/handovers", getToken(t, contact)))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_handoverApi_generateDocumentAndReview(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff2", "staff2@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Lubumbashi Clinic Site")
	contact := createContact(t, ts, proj, "Odette", "Mwamba", "odette@clinic.cd", true)

	h, err := ts.handoverSvc.Create(ctxb(), handover.NewHandover{ProjectID: proj.ID})
	require.NoError(t, err)
	h, err = ts.handoverSvc.UpdateChecklist(ctxb(), h.ID, handover.UpdateChecklist{Items: fullChecklist()})
	require.NoError(t, err)

	tmpl, err := ts.documentSvc.CreateTemplate(ctxb(), document.NewTemplate{
		Name:    "Pilot Handover Summary",
		DocType: document.TypeHandover,
		Content: "<h1>Pilot Handover Summary</h1>" +
			"<p><strong>Project:</strong> {{.project_name}}</p>" +
			"<p><strong>Checklist completion:</strong> {{.completion_percentage}}%</p>" +
			"<p><strong>Go/No-Go decision:</strong> {{.go_no_go_decision}}</p>",
		RequiredFields: []string{"project_name", "completion_percentage", "go_no_go_decision"},
	}, staff.ID)
	require.NoError(t, err)
	_, err = ts.documentSvc.PublishTemplate(ctxb(), tmpl.ID)
	require.NoError(t, err)

	base := "/v1/handovers/" + h.ID

	rec := ts.exec(newAuthRequest(http.MethodPost, base+"/generate-document", token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inst document.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, document.TypeHandover, inst.DocType)
	assert.Equal(t, 1, inst.TemplateVersion)
	assert.Equal(t, document.InstanceGenerated, inst.Status)
	assert.Equal(t, staff.ID, inst.GeneratedByID)
	assert.Contains(t, inst.Title, proj.Name)
	assert.Contains(t, inst.RenderedHTML, proj.Name)

	h, err = ts.handoverSvc.Get(ctxb(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, h.DocumentID)

	sent := len(emailsvc.SentMessages)
	rec = ts.exec(newAuthRequest(http.MethodPost, base+"/request-review", token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Review requested."})}, rec)
	require.Len(t, emailsvc.SentMessages, sent+1)
	msg := emailsvc.SentMessages[sent]
	assert.Contains(t, msg.Subject, proj.Name)
	assert.Equal(t, contact.Email, msg.To[0].Address)
}
