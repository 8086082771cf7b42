package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core/audit"
	"github.com/sumano/oms/core/user"
)

func Test_userApi_login(t *testing.T) {
	ts := setupServer(t)

	createUser(t, ts.userRepo, "Awa Keita", "awa", "awa@sumano.cd", "LeFula2021!", user.StaffRoles, true)
	createUser(t, ts.userRepo, "Benny Off", "benny", "benny@sumano.cd", "Shhh!Secret1", nil, false)

	loginBody := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []struct {
		name     string
		body     []byte
		wantCode int
	}{
		{name: "empty body", body: nil, wantCode: http.StatusBadRequest},
		{name: "unknown user", body: loginBody("nope", "LeFula2021!"), wantCode: http.StatusBadRequest},
		{name: "wrong password", body: loginBody("awa", "wrong"), wantCode: http.StatusBadRequest},
		{name: "inactive account", body: loginBody("benny", "Shhh!Secret1"), wantCode: http.StatusForbidden},
		{name: "by username", body: loginBody("awa", "LeFula2021!"), wantCode: http.StatusOK},
		{name: "by email", body: loginBody("awa@sumano.cd", "LeFula2021!"), wantCode: http.StatusOK},
		{name: "email is case-insensitive", body: loginBody("AWA@sumano.CD", "LeFula2021!"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.exec(newRequest(http.MethodPost, "/v1/users/login", tt.body))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_loginThrottled(t *testing.T) {
	ts := setupServer(t)

	usr := createUser(t, ts.userRepo, "Awa Keita", "awa", "awa@sumano.cd", "LeFula2021!", user.StaffRoles, true)
	body := marchallObj(t, LoginRequest{Username: usr.Username, Password: "wrong"})

	// exhaust the allowed attempts
	for i := 0; i < 5; i++ {
		rec := ts.exec(newRequest(http.MethodPost, "/v1/users/login", body))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	// the correct password no longer helps
	goodBody := marchallObj(t, LoginRequest{Username: usr.Username, Password: "LeFula2021!"})
	rec := ts.exec(newRequest(http.MethodPost, "/v1/users/login", goodBody))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// failures and the lockout are on the audit trail
	events, err := ts.auditSvc.Query(context.Background(), audit.QueryFilter{EventType: audit.EventLoginFailure})
	require.NoError(t, err)
	assert.Len(t, events, 5)
	events, err = ts.auditSvc.Query(context.Background(), audit.QueryFilter{EventType: audit.EventLoginThrottled})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func Test_userApi_tokenRefresh(t *testing.T) {
	ts := setupServer(t)

	usr := createUser(t, ts.userRepo, "Awa Keita", "awa", "awa@sumano.cd", "LeFula2021!", user.StaffRoles, true)
	token := getToken(t, usr)

	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	events, err := ts.auditSvc.Query(context.Background(), audit.QueryFilter{EventType: audit.EventTokenRefresh})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, usr.ID, events[0].UserID)
}

func Test_userApi_query(t *testing.T) {
	ts := setupServer(t)

	admin := createUser(t, ts.userRepo, "Admin", "admin", "admin@sumano.cd", "", user.AdminRoles, true)
	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	contact := createUser(t, ts.userRepo, "Contact", "contact", "contact@sumano.cd", "", user.ClientRoles, true)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "staff cannot list users", token: getToken(t, staff), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "admin lists users", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, admin, staff, contact)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/users"

		t.Run(tt.name, func(t *testing.T) {
			rec := ts.exec(newAuthRequest(tt.method, tt.path, tt.token))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	ts := setupServer(t)

	admin := createUser(t, ts.userRepo, "Admin", "admin", "admin@sumano.cd", "", user.AdminRoles, true)
	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)
	other := createUser(t, ts.userRepo, "Other", "other", "other@sumano.cd", "", user.StaffRoles, true)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users/" + staff.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own profile", path: "/v1/users/" + staff.ID, token: getToken(t, staff), wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
		{name: "someone else's profile is hidden", path: "/v1/users/" + other.ID, token: getToken(t, staff), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "admin sees anyone", path: "/v1/users/" + other.ID, token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, other)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			rec := ts.exec(newAuthRequest(tt.method, tt.path, tt.token))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	ts := setupServer(t)

	admin := createUser(t, ts.userRepo, "Admin", "admin", "admin@sumano.cd", "", user.AdminRoles, true)

	body := marchallObj(t, user.NewUser{
		Name:            "New Staff",
		Username:        "newstaff",
		Email:           "newstaff@sumano.cd",
		Password:        "LeFula2021!",
		PasswordConfirm: "LeFula2021!",
		Roles:           user.StaffRoles,
	})
	rec := ts.exec(newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "newstaff", created.Username)

	// duplicate username is rejected
	rec = ts.exec(newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_userApi_destroy(t *testing.T) {
	ts := setupServer(t)

	admin := createUser(t, ts.userRepo, "Admin", "admin", "admin@sumano.cd", "", user.AdminRoles, true)
	staff := createUser(t, ts.userRepo, "Staff", "staff", "staff@sumano.cd", "", user.StaffRoles, true)

	// self-deletion is forbidden
	rec := ts.exec(newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, getToken(t, admin)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.exec(newAuthRequest(http.MethodDelete, "/v1/users/"+staff.ID, getToken(t, admin)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := ts.userSvc.GetByID(context.Background(), staff.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}
