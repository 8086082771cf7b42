package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/attachment"
	"github.com/sumano/oms/core/user"
)

func newUploadRequest(
	t *testing.T,
	path, token string,
	fields map[string]string,
	fileName string,
	content []byte,
) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func Test_attachmentApi_uploadAndDownload(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Goma Hotel Site")

	content := []byte("quarterly progress report\nall milestones on track\n")
	fields := map[string]string{
		"entity_type": attachment.EntityProject,
		"entity_id":   proj.ID,
		"description": "progress report",
	}

	rec := ts.exec(newUploadRequest(t, "/v1/attachments", token, fields, "report.txt", content))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var at attachment.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &at))
	assert.Equal(t, "report.txt", at.FileName)
	assert.Equal(t, attachment.CategoryDocument, at.Category)
	assert.Equal(t, int64(len(content)), at.SizeBytes)
	assert.Equal(t, staff.ID, at.UploadedByID)
	assert.NotEmpty(t, at.Checksum)

	// executables are rejected outright
	rec = ts.exec(newUploadRequest(t, "/v1/attachments", token, fields, "totally-safe.exe", content))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	// a request without a file part is rejected too
	rec = ts.exec(newUploadRequest(t, "/v1/attachments", token, fields, "", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/attachments/"+at.ID+"/download", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, `attachment; filename="report.txt"`, rec.Header().Get("Content-Disposition"))

	// each download bumps the count
	got, err := ts.attachmentSvc.Get(ctxb(), at.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DownloadCount)

	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/attachments?entity_type=project&entity_id="+proj.ID, token))
	require.Equal(t, http.StatusOK, rec.Code)
	var ats []attachment.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ats))
	require.Len(t, ats, 1)
	assert.Equal(t, at.ID, ats[0].ID)

	rec = ts.exec(newAuthRequest(http.MethodDelete, "/v1/attachments?id="+at.ID, token))
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err = ts.attachmentSvc.Get(ctxb(), at.ID)
	assert.ErrorIs(t, err, attachment.ErrNotFound)
}

func Test_attachmentApi_outbox(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff2", "staff2@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Kisangani Library Site")

	content := []byte("signed acceptance scan")
	fields := map[string]string{
		"entity_type": attachment.EntityProject,
		"entity_id":   proj.ID,
	}

	enqueue := func() attachment.OutboxEntry {
		t.Helper()
		req := newUploadRequest(t, "/v1/attachments/enqueue", token, fields, "scan.pdf", content)
		req.Header.Set(idempotencyKeyHeader, "upload-scan-1")
		rec := ts.exec(req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		var entry attachment.OutboxEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		return entry
	}

	entry := enqueue()
	assert.Equal(t, attachment.OutboxPending, entry.Status)
	assert.Equal(t, "upload-scan-1", entry.IdempotencyKey)

	// resubmitting with the same key returns the same entry
	again := enqueue()
	assert.Equal(t, entry.ID, again.ID)

	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/attachments/outbox/process", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res["processed"])

	// the staged upload is now a regular attachment
	ats, err := ts.attachmentSvc.Query(ctxb(), attachment.QueryFilter{EntityID: proj.ID})
	require.NoError(t, err)
	require.Len(t, ats, 1)
	assert.Equal(t, "scan.pdf", ats[0].FileName)
	assert.Equal(t, staff.ID, ats[0].UploadedByID)

	// nothing left to do on the next run
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/attachments/outbox/process", token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Zero(t, res["processed"])

	// the finalized attachment downloads like any direct upload
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/attachments/"+ats[0].ID+"/download", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
}

func Test_attachmentApi_statisticsAndMyUploads(t *testing.T) {
	ts := setupServer(t)

	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	lead := createUser(t, ts.userRepo, "Lead", "lead", "lead@sumano.cd", "", user.StaffRoles, true)
	token := getToken(t, staff)
	proj := createProject(t, ts, "Goma Hotel Site")

	upload := func(usr user.User, name string, content []byte) attachment.Attachment {
		t.Helper()
		na := attachment.NewAttachment{EntityType: attachment.EntityProject, EntityID: proj.ID}
		at, err := ts.attachmentSvc.Upload(ctxb(), na, name, bytes.NewReader(content), usr.ID)
		require.NoError(t, err)
		return at
	}
	upload(staff, "notes.txt", []byte("meeting notes"))
	upload(staff, "logo.png", []byte("not really a png"))
	theirs := upload(lead, "handbook.pdf", []byte("staff handbook"))

	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/attachments/statistics", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats attachment.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, int64(len("meeting notes")+len("not really a png")+len("staff handbook")), stats.TotalBytes)
	assert.Equal(t, 1, stats.ByCategory[attachment.CategoryImage])
	assert.Equal(t, 2, stats.ByCategory[attachment.CategoryDocument]) // txt and pdf

	// each caller only sees their own uploads under /mine
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/attachments/mine", getToken(t, lead)))
	require.Equal(t, http.StatusOK, rec.Code)
	var ats []attachment.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ats))
	require.Len(t, ats, 1)
	assert.Equal(t, theirs.ID, ats[0].ID)
}
