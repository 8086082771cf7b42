package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sumano/oms/core/acceptance"
	"github.com/sumano/oms/core/attachment"
	"github.com/sumano/oms/core/audit"
	"github.com/sumano/oms/core/change"
	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/handover"
	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
	emailsvc "github.com/sumano/oms/services/email"
	logsvc "github.com/sumano/oms/services/logger"
	dummydb "github.com/sumano/oms/storage/database/dummy"
	"github.com/sumano/oms/storage/filestore"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// testServer bundles the API under test with the backing in-memory
// repositories so tests can seed data directly.
type testServer struct {
	srv Server
	db  *dummydb.DB

	userRepo       user.Repository
	clientRepo     client.Repository
	projectRepo    project.Repository
	changeRepo     change.Repository
	handoverRepo   handover.Repository
	acceptanceRepo acceptance.Repository
	documentRepo   document.Repository
	attachmentRepo attachment.Repository
	auditRepo      audit.Repository

	userSvc       user.ServiceInterface
	clientSvc     client.ServiceInterface
	projectSvc    project.ServiceInterface
	changeSvc     change.ServiceInterface
	handoverSvc   handover.ServiceInterface
	acceptanceSvc acceptance.ServiceInterface
	documentSvc   document.ServiceInterface
	attachmentSvc attachment.ServiceInterface
	auditSvc      audit.ServiceInterface
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setupServer() failed: %v", err)
	}

	ts := &testServer{
		db:             db,
		userRepo:       dummydb.NewUserRepository(db),
		clientRepo:     dummydb.NewClientRepository(db),
		projectRepo:    dummydb.NewProjectRepository(db),
		changeRepo:     dummydb.NewChangeRepository(db),
		handoverRepo:   dummydb.NewHandoverRepository(db),
		acceptanceRepo: dummydb.NewAcceptanceRepository(db),
		documentRepo:   dummydb.NewDocumentRepository(db),
		attachmentRepo: dummydb.NewAttachmentRepository(db),
		auditRepo:      dummydb.NewAuditRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	store, err := filestore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("setupServer() failed: %v", err)
	}

	ts.userSvc = user.NewService(db, ts.userRepo, mailSvc)
	ts.clientSvc = client.NewService(db, ts.clientRepo)
	ts.projectSvc = project.NewService(db, ts.projectRepo)
	ts.changeSvc = change.NewService(db, ts.changeRepo, mailSvc)
	ts.handoverSvc = handover.NewService(db, ts.handoverRepo, mailSvc)
	ts.acceptanceSvc = acceptance.NewService(db, ts.acceptanceRepo)
	ts.documentSvc = document.NewService(db, ts.documentRepo)
	ts.attachmentSvc = attachment.NewService(db, ts.attachmentRepo, store, logger)
	ts.auditSvc = audit.NewService(db, ts.auditRepo, logger)

	ts.srv = NewServer(&Options{
		DisableReqLogs: true,
		Logger:         logger,
		SignalShutdown: func() {},
		UserSvc:        ts.userSvc,
		ClientSvc:      ts.clientSvc,
		ProjectSvc:     ts.projectSvc,
		ChangeSvc:      ts.changeSvc,
		HandoverSvc:    ts.handoverSvc,
		AcceptanceSvc:  ts.acceptanceSvc,
		DocumentSvc:    ts.documentSvc,
		AttachmentSvc:  ts.attachmentSvc,
		AuditSvc:       ts.auditSvc,
	})
	return ts
}

func (ts *testServer) exec(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createProject(t *testing.T, ts *testServer, name string) project.Project {
	t.Helper()

	org, err := ts.clientSvc.CreateOrganization(context.Background(), client.NewOrganization{
		Name: name + " Org", OrganizationType: "educational", Status: "active",
	})
	if err != nil {
		t.Fatalf("createProject() failed: %v", err)
	}
	cl, err := ts.clientSvc.CreateClient(context.Background(), client.NewClient{
		OrganizationID: org.ID, ClientSince: time.Now(), RelationshipStatus: "active",
	})
	if err != nil {
		t.Fatalf("createProject() failed: %v", err)
	}
	proj, err := ts.projectSvc.Create(context.Background(), project.NewProject{
		ClientID: cl.ID, Name: name, ServiceType: project.TypeWebDevelopment,
	})
	if err != nil {
		t.Fatalf("createProject() failed: %v", err)
	}
	return proj
}

// ctxb saves typing context.Background() at every seeding call site.
func ctxb() context.Context { return context.Background() }

func createContact(t *testing.T, ts *testServer, proj project.Project, first, last, email string, primary bool) client.Contact {
	t.Helper()

	cl, err := ts.clientSvc.GetClient(ctxb(), proj.ClientID)
	if err != nil {
		t.Fatalf("createContact() failed: %v", err)
	}
	contact, err := ts.clientSvc.CreateContact(ctxb(), client.NewContact{
		OrganizationID: cl.OrganizationID,
		FirstName:      first, LastName: last, Email: email,
		RoleType: "decision_maker", IsPrimaryContact: primary,
	})
	if err != nil {
		t.Fatalf("createContact() failed: %v", err)
	}
	return contact
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	t.Helper()
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
