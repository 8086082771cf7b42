// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"context"
	"sync"

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
	DB struct {
		core.DBExecutor // never used; repositories hold data in maps

		user       *userTable
		client     *clientTables
		project    *projectTables
		change     *changeTables
		handover   *handoverTable
		acceptance *acceptanceTable
		document   *documentTables
		attachment *attachmentTables
		audit      *auditTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	clientTables struct {
		sync.RWMutex
		orgs     map[string]*client.Organization
		contacts map[string]*client.Contact
		clients  map[string]*client.Client
		intakes  map[string]*client.Intake
	}

	projectTables struct {
		sync.RWMutex
		projects    map[string]*project.Project
		transitions []project.StatusTransition
		sequences   map[int]int
	}

	changeTables struct {
		sync.RWMutex
		requests  map[string]*change.Request
		sequences map[int]int
	}

	handoverTable struct {
		sync.RWMutex
		table map[string]*handover.Handover
	}

	acceptanceTable struct {
		sync.RWMutex
		table map[string]*acceptance.Acceptance
	}

	documentTables struct {
		sync.RWMutex
		templates map[string]*document.Template
		instances map[string]*document.Instance
	}

	attachmentTables struct {
		sync.RWMutex
		attachments map[string]*attachment.Attachment
		outbox      map[string]*attachment.OutboxEntry
	}

	auditTable struct {
		sync.RWMutex
		events []audit.SecurityEvent
	}
)

var _ core.DB = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		client: &clientTables{
			orgs:     make(map[string]*client.Organization),
			contacts: make(map[string]*client.Contact),
			clients:  make(map[string]*client.Client),
			intakes:  make(map[string]*client.Intake),
		},
		project: &projectTables{
			projects:  make(map[string]*project.Project),
			sequences: make(map[int]int),
		},
		change: &changeTables{
			requests:  make(map[string]*change.Request),
			sequences: make(map[int]int),
		},
		handover:   &handoverTable{table: make(map[string]*handover.Handover)},
		acceptance: &acceptanceTable{table: make(map[string]*acceptance.Acceptance)},
		document: &documentTables{
			templates: make(map[string]*document.Template),
			instances: make(map[string]*document.Instance),
		},
		attachment: &attachmentTables{
			attachments: make(map[string]*attachment.Attachment),
			outbox:      make(map[string]*attachment.OutboxEntry),
		},
		audit: &auditTable{},
	}
	return db, nil
}

// Transaction runs fn directly; there is nothing to commit or roll back.
func (db *DB) Transaction(ctx context.Context, fn func(tx core.DBExecutor) error) error {
	return fn(db)
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
