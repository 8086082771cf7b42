package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/sumano/oms/apps/api/echo"
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
	emailsvc "github.com/sumano/oms/services/email"
	logsvc "github.com/sumano/oms/services/logger"
	"github.com/sumano/oms/storage/database"
	"github.com/sumano/oms/storage/database/sqlxrepos"
	"github.com/sumano/oms/storage/filestore"
)

const outboxInterval = 30 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := newLogger("API : ")
	dbLogger := newLogger("DB : ")

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("closing database", err)
		}
	}()

	store, err := filestore.NewLocal(core.Conf.MediaRoot)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(db, sqlxrepos.NewUserRepository(db), mailSvc)
	clientSvc := client.NewService(db, sqlxrepos.NewClientRepository(db))
	projectSvc := project.NewService(db, sqlxrepos.NewProjectRepository(db))
	changeSvc := change.NewService(db, sqlxrepos.NewChangeRepository(db), mailSvc)
	handoverSvc := handover.NewService(db, sqlxrepos.NewHandoverRepository(db), mailSvc)
	acceptanceSvc := acceptance.NewService(db, sqlxrepos.NewAcceptanceRepository(db))
	documentSvc := document.NewService(db, sqlxrepos.NewDocumentRepository(db))
	attachmentSvc := attachment.NewService(db, sqlxrepos.NewAttachmentRepository(db), store, logger)
	auditSvc := audit.NewService(db, sqlxrepos.NewAuditRepository(db), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Background Workers

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go attachmentSvc.RunOutboxWorker(workerCtx, outboxInterval)

	// =========================================================================
	// Start API Server

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:        net.JoinHostPort(core.Conf.Server.Host, core.Conf.Server.Port),
		Logger:         logger,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		HealthCheck:    db.PingContext,
		UserSvc:        usrSvc,
		ClientSvc:      clientSvc,
		ProjectSvc:     projectSvc,
		ChangeSvc:      changeSvc,
		HandoverSvc:    handoverSvc,
		AcceptanceSvc:  acceptanceSvc,
		DocumentSvc:    documentSvc,
		AttachmentSvc:  attachmentSvc,
		AuditSvc:       auditSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stopWorkers()

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err = app.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func newLogger(prefix string) core.Logger {
	if core.Conf.Debug {
		return logsvc.NewStdLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile))
	}
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(true)
	return logger
}

func setUpDB() (*database.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}
	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB.DB); err != nil {
		return nil, err
	}
	return db, nil
}
