package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/audit"
	"github.com/sumano/oms/core/user"
)

func Test_auditApi_queryAndResolve(t *testing.T) {
	ts := setupServer(t)

	admin := createUser(t, ts.userRepo, "Admin", "admin", "admin@sumano.cd", "", user.AdminRoles, true)
	token := getToken(t, admin)

	record := func(eventType, username string) {
		t.Helper()
		require.NoError(t, ts.auditSvc.Record(ctxb(), eventType, "", username, "41.243.10.4", "curl/7.79", nil))
	}
	record(audit.EventLoginFailure, "ghost")
	record(audit.EventLoginFailure, "ghost")
	record(audit.EventLoginSuccess, "staff")

	// failures carry a warning severity and start out unresolved
	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/security-events?severity=warning&resolved=false", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var events []audit.SecurityEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)

	body := marchallObj(t, audit.BulkResolve{IDs: []string{events[0].ID, events[1].ID}})
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/security-events/resolve", token, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"resolved":2}`)}, rec)

	// resolving again is a no-op
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/security-events/resolve", token, body))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"resolved":0}`)}, rec)

	resolved, err := ts.auditSvc.Query(ctxb(), audit.QueryFilter{Resolved: "true"})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, admin.ID, resolved[0].ResolvedByID)
	assert.False(t, resolved[0].ResolvedAt.IsZero())

	// security events are not for staff eyes, only admins
	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	rec = ts.exec(newAuthRequest(http.MethodGet, "/v1/security-events", getToken(t, staff)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_auditApi_statisticsAndCleanup(t *testing.T) {
	ts := setupServer(t)

	admin := createUser(t, ts.userRepo, "Admin", "admin", "admin@sumano.cd", "", user.AdminRoles, true)
	token := getToken(t, admin)

	require.NoError(t, ts.auditSvc.Record(ctxb(), audit.EventLoginFailure, "", "ghost", "41.243.10.4", "", nil))
	require.NoError(t, ts.auditSvc.Record(ctxb(), audit.EventLoginSuccess, admin.ID, admin.Username, "41.243.10.4", "", nil))
	require.NoError(t, ts.auditSvc.Record(ctxb(), audit.EventTokenRefresh, admin.ID, admin.Username, "41.243.10.4", "", nil))

	rec := ts.exec(newAuthRequest(http.MethodGet, "/v1/security-events/statistics", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats audit.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByType[audit.EventLoginFailure])
	assert.Equal(t, 1, stats.BySeverity[audit.SeverityWarning])
	assert.Equal(t, 2, stats.BySeverity[audit.SeverityInfo])

	// a resolved event past the retention window gets cleaned up; an
	// unresolved one of the same age is kept for review
	old := time.Now().AddDate(0, 0, -120)
	stale := audit.SecurityEvent{
		ID: uuid.New().String(), EventType: audit.EventLoginFailure,
		Severity: audit.SeverityWarning, Username: "ghost",
		Resolved: true, ResolvedByID: admin.ID, ResolvedAt: old, CreatedAt: old,
	}
	require.NoError(t, ts.auditRepo.CreateEvent(ctxb(), &stale))
	unresolved := audit.SecurityEvent{
		ID: uuid.New().String(), EventType: audit.EventLoginFailure,
		Severity: audit.SeverityWarning, Username: "ghost", CreatedAt: old,
	}
	require.NoError(t, ts.auditRepo.CreateEvent(ctxb(), &unresolved))

	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/security-events/cleanup", token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"deleted":1}`)}, rec)

	left, err := ts.auditSvc.Query(ctxb(), audit.QueryFilter{EventType: audit.EventLoginFailure})
	require.NoError(t, err)
	ids := make([]string, len(left))
	for i, ev := range left {
		ids[i] = ev.ID
	}
	assert.NotContains(t, ids, stale.ID)
	assert.Contains(t, ids, unresolved.ID)
}
