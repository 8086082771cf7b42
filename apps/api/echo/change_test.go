package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/change"
	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/user"
	emailsvc "github.com/sumano/oms/services/email"
)

func Test_changeApi_workflow(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")

	// an active contact on the client org gets the decision email
	cl, err := ts.clientSvc.GetClient(context.Background(), proj.ClientID)
	require.NoError(t, err)
	_, err = ts.clientSvc.CreateContact(context.Background(), client.NewContact{
		OrganizationID: cl.OrganizationID,
		FirstName:      "Grace", LastName: "Kanku",
		Email: "grace@bolingani.cd", RoleType: "decision_maker", IsPrimaryContact: true,
	})
	require.NoError(t, err)

	do := func(method, path string, body []byte, wantCode int) change.Request {
		t.Helper()
		rec := ts.exec(newAuthRequest(method, path, token, body))
		require.Equal(t, wantCode, rec.Code, rec.Body.String())
		var req change.Request
		if rec.Code < 300 {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
		}
		return req
	}

	body := marchallObj(t, change.NewRequest{
		ProjectID: proj.ID, Title: "Add online payments", Description: "parents want mobile money", Priority: change.PriorityHigh,
	})
	req := do(http.MethodPost, "/v1/change-requests", body, http.StatusCreated)
	assert.Equal(t, change.StatusDraft, req.Status)
	assert.Equal(t, fmt.Sprintf("CR-%d-0001", time.Now().Year()), req.RequestNumber)
	assert.Equal(t, staff.ID, req.RequestedByID)

	base := "/v1/change-requests/" + req.ID

	// draft -> submitted -> under_review
	req = do(http.MethodPost, base+"/submit", nil, http.StatusOK)
	assert.Equal(t, change.StatusSubmitted, req.Status)
	req = do(http.MethodPost, base+"/start-review", nil, http.StatusOK)
	assert.Equal(t, change.StatusUnderReview, req.Status)

	// a submitted request can no longer be edited
	do(http.MethodPut, base, marchallObj(t, change.UpdateRequest{Title: "nope"}), http.StatusBadRequest)

	// impact assessment
	assess := marchallObj(t, change.NewAssessment{
		ScheduleImpact: "2 weeks", CostImpact: "USD 400", ScopeImpact: "payments module",
	})
	req = do(http.MethodPost, base+"/assess", assess, http.StatusOK)
	assert.Equal(t, change.StatusImpactAssessed, req.Status)
	assert.Equal(t, staff.ID, req.Impact.AssessedByID)

	// client decides to proceed; the contact is notified
	sent := len(emailsvc.SentMessages)
	decision := marchallObj(t, change.NewDecision{Decision: change.DecisionProceed, Notes: "go ahead"})
	req = do(http.MethodPost, base+"/decision", decision, http.StatusOK)
	assert.Equal(t, change.StatusApproved, req.Status)
	require.Len(t, emailsvc.SentMessages, sent+1)
	assert.Contains(t, emailsvc.SentMessages[sent].Subject, req.RequestNumber)

	// implementation requires both signatures
	do(http.MethodPost, base+"/implement", nil, http.StatusBadRequest)

	req = do(http.MethodPost, base+"/sign", marchallObj(t, change.NewSignature{Party: change.PartyClient, Name: "Grace Kanku"}), http.StatusOK)
	assert.True(t, req.ClientSignature.IsSigned())
	req = do(http.MethodPost, base+"/sign", marchallObj(t, change.NewSignature{Party: change.PartyProvider, Name: "Sumano Ops"}), http.StatusOK)
	assert.True(t, req.FullySigned())

	// signing twice for the same party fails
	do(http.MethodPost, base+"/sign", marchallObj(t, change.NewSignature{Party: change.PartyClient, Name: "Again"}), http.StatusBadRequest)

	req = do(http.MethodPost, base+"/implement", nil, http.StatusOK)
	assert.Equal(t, change.StatusImplemented, req.Status)
	req = do(http.MethodPost, base+"/close", nil, http.StatusOK)
	assert.Equal(t, change.StatusClosed, req.Status)
	assert.False(t, req.ClosedAt.IsZero())
}

func Test_changeApi_requestNumbersAreSequential(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")

	year := time.Now().Year()
	for i := 1; i <= 3; i++ {
		body := marchallObj(t, change.NewRequest{ProjectID: proj.ID, Title: fmt.Sprintf("Change %d", i)})
		rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/change-requests", token, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var req change.Request
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
		assert.Equal(t, fmt.Sprintf("CR-%d-%04d", year, i), req.RequestNumber)
	}
}

func Test_changeApi_statisticsAndPending(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")

	seed := func(title string) change.Request {
		t.Helper()
		req, err := ts.changeSvc.Create(ctxb(), change.NewRequest{ProjectID: proj.ID, Title: title}, staff.ID)
		require.NoError(t, err)
		return req
	}
	advance := func(req change.Request, steps ...func(string) error) change.Request {
		t.Helper()
		for _, step := range steps {
			require.NoError(t, step(req.ID))
		}
		got, err := ts.changeSvc.Get(ctxb(), req.ID)
		require.NoError(t, err)
		return got
	}
	submit := func(id string) error { _, err := ts.changeSvc.Submit(ctxb(), id); return err }
	review := func(id string) error { _, err := ts.changeSvc.StartReview(ctxb(), id); return err }
	assess := func(id string) error {
		_, err := ts.changeSvc.AssessImpact(ctxb(), id, change.NewAssessment{ScheduleImpact: "1 week"}, staff.ID)
		return err
	}
	decide := func(decision string) func(string) error {
		return func(id string) error {
			_, err := ts.changeSvc.RecordDecision(ctxb(), id, change.NewDecision{Decision: decision})
			return err
		}
	}

	seed("Draft only")
	submitted := advance(seed("Awaiting review"), submit)
	assessed := advance(seed("Awaiting decision"), submit, review, assess)
	approved := advance(seed("Awaiting signatures"), submit, review, assess, decide(change.DecisionProceed))
	advance(seed("Withdrawn"), submit, review, assess, decide(change.DecisionWithdraw))

	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/change-requests/statistics", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats change.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.Open) // the withdrawn request is rejected, not open
	assert.Equal(t, 1, stats.ByStatus[change.StatusDraft])
	assert.Equal(t, 1, stats.ByStatus[change.StatusApproved])
	assert.Equal(t, 1, stats.ByStatus[change.StatusRejected])

	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/change-requests/pending", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var queues change.PendingQueues
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queues))
	require.Len(t, queues.AwaitingReview, 1)
	assert.Equal(t, submitted.ID, queues.AwaitingReview[0].ID)
	require.Len(t, queues.AwaitingDecision, 1)
	assert.Equal(t, assessed.ID, queues.AwaitingDecision[0].ID)
	require.Len(t, queues.AwaitingSignature, 1)
	assert.Equal(t, approved.ID, queues.AwaitingSignature[0].ID)

	// once both parties sign, the request leaves the signature queue
	_, err := ts.changeSvc.Sign(ctxb(), approved.ID, change.NewSignature{Party: change.PartyClient, Name: "Grace Kanku"})
	require.NoError(t, err)
	_, err = ts.changeSvc.Sign(ctxb(), approved.ID, change.NewSignature{Party: change.PartyProvider, Name: "Sumano Ops"})
	require.NoError(t, err)

	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/change-requests/pending", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queues))
	assert.Empty(t, queues.AwaitingSignature)

	// dashboards are staff territory
	contact := createUser(t, ts.userRepo, "Contact", "contact", "contact@bolingani.cd", "", user.ClientRoles, true)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/change-requests/statistics", getToken(t, contact)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_changeApi_deferredDecisionRejects(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")

	req, err := ts.changeSvc.Create(ctxb(), change.NewRequest{ProjectID: proj.ID, Title: "Add photo gallery"}, staff.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.Submit(ctxb(), req.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.StartReview(ctxb(), req.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.AssessImpact(ctxb(), req.ID, change.NewAssessment{ScheduleImpact: "1 week"}, staff.ID)
	require.NoError(t, err)

	body := marchallObj(t, change.NewDecision{Decision: change.DecisionDefer, Notes: "revisit next term"})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/change-requests/"+req.ID+"/decision", token, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got change.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, change.StatusRejected, got.Status)
	assert.Equal(t, change.DecisionDefer, got.Decision)
	assert.Equal(t, "revisit next term", got.DecisionNotes)
	assert.False(t, got.DecisionAt.IsZero())

	// a rejected request cannot be signed or implemented
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/change-requests/"+req.ID+"/implement", token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_changeApi_generateDocument(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Bolingani Website")

	req, err := ts.changeSvc.Create(ctxb(), change.NewRequest{ProjectID: proj.ID, Title: "Add French locale"}, staff.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.Submit(ctxb(), req.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.StartReview(ctxb(), req.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.AssessImpact(ctxb(), req.ID, change.NewAssessment{ScheduleImpact: "2 weeks"}, staff.ID)
	require.NoError(t, err)
	_, err = ts.changeSvc.RecordDecision(ctxb(), req.ID, change.NewDecision{Decision: change.DecisionProceed})
	require.NoError(t, err)
	_, err = ts.changeSvc.Sign(ctxb(), req.ID, change.NewSignature{Party: change.PartyClient, Name: "Grace Kanku"})
	require.NoError(t, err)
	_, err = ts.changeSvc.Sign(ctxb(), req.ID, change.NewSignature{Party: change.PartyProvider, Name: "Sumano Ops"})
	require.NoError(t, err)

	// no published change template yet
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/change-requests/"+req.ID+"/generate-document", token))
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	tmpl, err := ts.documentSvc.CreateTemplate(ctxb(), document.NewTemplate{
		Name:    "Change Request Authorization",
		DocType: document.TypeChange,
		Content: "<h1>Change Request Authorization</h1>" +
			"<p><strong>Reference:</strong> {{.request_number}}</p>" +
			"<p><strong>Change:</strong> {{.title}}</p>" +
			"<p><strong>Decision:</strong> {{.decision}}</p>" +
			"<p><strong>Authorized for the client by:</strong> {{.client_signed_by}}</p>",
		RequiredFields: []string{"request_number", "title", "decision"},
	}, staff.ID)
	require.NoError(t, err)
	_, err = ts.documentSvc.PublishTemplate(ctxb(), tmpl.ID)
	require.NoError(t, err)

	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/change-requests/"+req.ID+"/generate-document", token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inst document.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, document.TypeChange, inst.DocType)
	assert.Equal(t, staff.ID, inst.GeneratedByID)
	assert.Contains(t, inst.Title, req.RequestNumber)
	assert.Contains(t, inst.RenderedHTML, req.RequestNumber)
	assert.Contains(t, inst.RenderedHTML, "Grace Kanku")

	got, err := ts.changeSvc.Get(ctxb(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.DocumentID)
}
