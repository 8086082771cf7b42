package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/acceptance"
	"github.com/sumano/oms/core/attachment"
	"github.com/sumano/oms/core/audit"
	"github.com/sumano/oms/core/change"
	"github.com/sumano/oms/core/client"
	"github.com/sumano/oms/core/document"
	"github.com/sumano/oms/core/handover"
	"github.com/sumano/oms/core/project"
	"github.com/sumano/oms/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger         core.Logger
		SignalShutdown func()

		// HealthCheck reports backing-store reachability for /health.
		HealthCheck func(context.Context) error

		UserSvc       user.ServiceInterface
		ClientSvc     client.ServiceInterface
		ProjectSvc    project.ServiceInterface
		ChangeSvc     change.ServiceInterface
		HandoverSvc   handover.ServiceInterface
		AcceptanceSvc acceptance.ServiceInterface
		DocumentSvc   document.ServiceInterface
		AttachmentSvc attachment.ServiceInterface
		AuditSvc      audit.ServiceInterface
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.AuditSvc)
	registerClientAPI(v1, jwt, s.opts.ClientSvc, s.opts.UserSvc)
	registerProjectAPI(v1, jwt, s.opts.ProjectSvc, s.opts.UserSvc)
	registerChangeAPI(v1, jwt, s.opts.ChangeSvc, s.opts.ClientSvc, s.opts.ProjectSvc, s.opts.DocumentSvc, s.opts.UserSvc)
	registerHandoverAPI(v1, jwt, s.opts.HandoverSvc, s.opts.ProjectSvc, s.opts.DocumentSvc, s.opts.ClientSvc, s.opts.UserSvc)
	registerAcceptanceAPI(v1, jwt, s.opts.AcceptanceSvc, s.opts.ProjectSvc, s.opts.DocumentSvc, s.opts.UserSvc)
	registerDocumentAPI(v1, jwt, s.opts.DocumentSvc, s.opts.UserSvc)
	registerAttachmentAPI(v1, jwt, s.opts.AttachmentSvc, s.opts.UserSvc)
	registerAuditAPI(v1, jwt, s.opts.AuditSvc, s.opts.UserSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}

func (s *server) health(ctx echo.Context) error {
	if s.opts.HealthCheck != nil {
		if err := s.opts.HealthCheck(ctx.Request().Context()); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
