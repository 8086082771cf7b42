package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/acceptance"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/user"
)

func Test_acceptanceApi_workflow(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Lubumbashi School Portal")

	do := func(method, path string, body []byte, wantCode int) acceptance.Acceptance {
		t.Helper()
		rec := ts.exec(newAuthRequest(method, path, token, body))
		require.Equal(t, wantCode, rec.Code, rec.Body.String())
		var a acceptance.Acceptance
		if rec.Code < 300 {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
		}
		return a
	}

	body := marchallObj(t, acceptance.NewAcceptance{
		ProjectID: proj.ID, Outcome: acceptance.OutcomeWithConditions,
		Conditions: "fix the contact form within two weeks", Feedback: "solid pilot overall",
	})
	a := do(http.MethodPost, "/v1/acceptances", body, http.StatusCreated)
	assert.Equal(t, acceptance.OutcomeWithConditions, a.Outcome)

	// one acceptance per project
	do(http.MethodPost, "/v1/acceptances", body, http.StatusBadRequest)
	// a conditional acceptance without conditions is rejected
	incomplete := marchallObj(t, acceptance.NewAcceptance{ProjectID: proj.ID, Outcome: acceptance.OutcomeWithConditions})
	do(http.MethodPost, "/v1/acceptances", incomplete, http.StatusBadRequest)

	base := "/v1/acceptances/" + a.ID

	a = do(http.MethodPost, base+"/sign", marchallObj(t, acceptance.NewSignature{
		Party: acceptance.PartyClient, Name: "Marie Ilunga", Title: "Director",
	}), http.StatusOK)
	assert.True(t, a.ClientSignature.IsSigned())
	assert.False(t, a.FullySigned())

	// each party signs at most once
	do(http.MethodPost, base+"/sign", marchallObj(t, acceptance.NewSignature{
		Party: acceptance.PartyClient, Name: "Again",
	}), http.StatusBadRequest)

	a = do(http.MethodPost, base+"/sign", marchallObj(t, acceptance.NewSignature{
		Party: acceptance.PartyProvider, Name: "Sumano Ops",
	}), http.StatusOK)
	assert.True(t, a.FullySigned())

	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/projects/"+proj.ID+"/acceptance", token))
	require.Equal(t, http.StatusOK, rec.Code)
}

func Test_acceptanceApi_generateCertificate(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Lubumbashi School Portal")

	a, err := ts.acceptanceSvc.Create(ctxb(), acceptance.NewAcceptance{
		ProjectID: proj.ID, Outcome: acceptance.OutcomeAccepted, Feedback: "ready for production",
	})
	require.NoError(t, err)
	_, err = ts.acceptanceSvc.Sign(ctxb(), a.ID, acceptance.NewSignature{Party: acceptance.PartyClient, Name: "Marie Ilunga"})
	require.NoError(t, err)
	_, err = ts.acceptanceSvc.Sign(ctxb(), a.ID, acceptance.NewSignature{Party: acceptance.PartyProvider, Name: "Sumano Ops"})
	require.NoError(t, err)

	// no published acceptance template yet
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/acceptances/"+a.ID+"/generate-certificate", token))
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	tmpl, err := ts.documentSvc.CreateTemplate(ctxb(), document.NewTemplate{
		Name:    "Pilot Acceptance Certificate",
		DocType: document.TypeAcceptance,
		Content: "<h1>Pilot Acceptance Certificate</h1>" +
			"<p><strong>Project:</strong> {{.project_name}}</p>" +
			"<p><strong>Outcome:</strong> {{.outcome}}</p>" +
			"<p><strong>Signed for the client by:</strong> {{.client_signed_by}}</p>",
		RequiredFields: []string{"project_name", "outcome"},
	}, staff.ID)
	require.NoError(t, err)
	_, err = ts.documentSvc.PublishTemplate(ctxb(), tmpl.ID)
	require.NoError(t, err)

	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/acceptances/"+a.ID+"/generate-certificate", token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inst document.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, document.TypeAcceptance, inst.DocType)
	assert.Equal(t, staff.ID, inst.GeneratedByID)
	assert.Contains(t, inst.Title, proj.Name)
	assert.Contains(t, inst.RenderedHTML, acceptance.OutcomeAccepted)
	assert.Contains(t, inst.RenderedHTML, "Marie Ilunga")

	got, err := ts.acceptanceSvc.Get(ctxb(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.DocumentID)
}
