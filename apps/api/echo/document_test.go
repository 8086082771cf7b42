package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/user"
)

func Test_documentApi_templates(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)

	do := func(method, path string, body []byte, wantCode int) document.Template {
		t.Helper()
		rec := ts.exec(newAuthRequest(method, path, token, body))
		require.Equal(t, wantCode, rec.Code, rec.Body.String())
		var tmpl document.Template
		if rec.Code < 300 {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tmpl))
		}
		return tmpl
	}

	body := marchallObj(t, document.NewTemplate{
		Name:           "Acceptance Certificate",
		DocType:        document.TypeAcceptance,
		Content:        "<h1>Certificate of Acceptance</h1><p>{{.project_name}}</p>",
		RequiredFields: []string{"project_name"},
	})
	tmpl := do(http.MethodPost, "/v1/document-templates", body, http.StatusCreated)
	assert.Equal(t, document.TemplateDraft, tmpl.Status)
	assert.Equal(t, 1, tmpl.Version)
	assert.Equal(t, staff.ID, tmpl.CreatedByID)

	// broken template syntax is caught at creation
	do(http.MethodPost, "/v1/document-templates", marchallObj(t, document.NewTemplate{
		Name: "Broken", DocType: document.TypeLegal, Content: "{{.unclosed",
	}), http.StatusBadRequest)

	base := "/v1/document-templates/" + tmpl.ID

	tmpl = do(http.MethodPut, base, marchallObj(t, document.UpdateTemplate{
		Content:        "<h1>Certificate of Acceptance</h1><p>{{.project_name}}, signed by {{.signed_by}}</p>",
		RequiredFields: []string{"project_name", "signed_by"},
	}), http.StatusOK)
	assert.Equal(t, []string{"project_name", "signed_by"}, tmpl.RequiredFields)

	tmpl = do(http.MethodPost, base+"/publish", nil, http.StatusOK)
	assert.Equal(t, document.TemplatePublished, tmpl.Status)
	assert.Equal(t, 1, tmpl.Version)

	// published templates are immutable
	do(http.MethodPut, base, marchallObj(t, document.UpdateTemplate{Name: "nope"}), http.StatusBadRequest)
	// and cannot be published twice
	do(http.MethodPost, base+"/publish", nil, http.StatusBadRequest)

	// publishing a successor archives the current one and bumps the version
	next := do(http.MethodPost, "/v1/document-templates", marchallObj(t, document.NewTemplate{
		Name:           "Acceptance Certificate",
		DocType:        document.TypeAcceptance,
		Content:        "<h1>Certificate of Acceptance v2</h1><p>{{.project_name}}</p>",
		RequiredFields: []string{"project_name"},
	}), http.StatusCreated)
	next = do(http.MethodPost, "/v1/document-templates/"+next.ID+"/publish", nil, http.StatusOK)
	assert.Equal(t, document.TemplatePublished, next.Status)
	assert.Equal(t, 2, next.Version)

	tmpl = do(http.MethodGet, base, nil, http.StatusOK)
	assert.Equal(t, document.TemplateArchived, tmpl.Status)
}

func Test_documentApi_generateAndSign(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff2", "staff2@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Kinshasa Bakery Site")

	tmpl, err := ts.documentSvc.CreateTemplate(ctxb(), document.NewTemplate{
		Name:           "Acceptance Certificate",
		DocType:        document.TypeAcceptance,
		Content:        "<h1>Certificate of Acceptance</h1><p>{{.project_name}}</p>",
		RequiredFields: []string{"project_name"},
	}, staff.ID)
	require.NoError(t, err)

	newInst := func(data map[string]interface{}) []byte {
		return marchallObj(t, document.NewInstance{
			TemplateID: tmpl.ID, Title: "Acceptance: " + proj.Name, ProjectID: proj.ID, Data: data,
		})
	}

	// drafts cannot be rendered
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/documents", token, newInst(map[string]interface{}{"project_name": proj.Name})))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	_, err = ts.documentSvc.PublishTemplate(ctxb(), tmpl.ID)
	require.NoError(t, err)

	// missing required data fields are reported by name
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/documents", token, newInst(nil)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required field: project_name")

	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/documents", token, newInst(map[string]interface{}{"project_name": proj.Name})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inst document.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, tmpl.ID, inst.TemplateID)
	assert.Equal(t, document.InstanceGenerated, inst.Status)
	assert.Contains(t, inst.RenderedHTML, proj.Name)

	// script injection never survives sanitization
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/documents", token,
		newInst(map[string]interface{}{"project_name": "<script>alert(1)</script>Bakery"})))
	require.Equal(t, http.StatusCreated, rec.Code)
	var unsafe document.Instance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unsafe))
	assert.NotContains(t, unsafe.RenderedHTML, "<script>")

	base := "/v1/documents/" + inst.ID

	// download serves the rendered HTML as a file
	rec = ts.exec(newAuthRequest(http.MethodGet, base+"/download", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".html")
	assert.Contains(t, rec.Body.String(), proj.Name)

	rec = ts.exec(newAuthRequest(http.MethodPost, base+"/sign", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, document.InstanceSigned, inst.Status)
	assert.False(t, inst.SignedAt.IsZero())

	// signing is once only
	rec = ts.exec(newAuthRequest(http.MethodPost, base+"/sign", token))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.exec(newAuthRequest(http.MethodPost, base+"/archive", token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, document.InstanceArchived, inst.Status)
}
