package change

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotEditable   = errors.New("only draft change requests can be edited")
	ErrInvalidStatus = errors.New("invalid status for this operation")
	ErrAlreadySigned = errors.New("party has already signed")
)

type Repository interface {
	NextSequence(ctx context.Context, year int, exec ...core.DBExecutor) (int, error)
	CreateRequest(ctx context.Context, req *Request, exec ...core.DBExecutor) error
	QueryRequests(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Request, error)
	GetRequest(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
	UpdateRequest(ctx context.Context, req *Request, exec ...core.DBExecutor) error
	DeleteRequestsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	CountByStatus(ctx context.Context, exec ...core.DBExecutor) (map[string]int, error)
}

type ServiceInterface interface {
	Create(ctx context.Context, nr NewRequest, requestedByID string) (Request, error)
	Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Request, error)
	Get(ctx context.Context, id string) (Request, error)
	Update(ctx context.Context, id string, ur UpdateRequest) (Request, error)
	Delete(ctx context.Context, ids ...string) error

	Submit(ctx context.Context, id string) (Request, error)
	StartReview(ctx context.Context, id string) (Request, error)
	AssessImpact(ctx context.Context, id string, na NewAssessment, assessedByID string) (Request, error)
	RecordDecision(ctx context.Context, id string, nd NewDecision, notify ...mail.Address) (Request, error)
	Sign(ctx context.Context, id string, ns NewSignature) (Request, error)
	MarkImplemented(ctx context.Context, id string) (Request, error)
	Close(ctx context.Context, id string) (Request, error)
	AttachDocument(ctx context.Context, id, documentID string) (Request, error)

	GetStatistics(ctx context.Context) (Statistics, error)
	Pending(ctx context.Context) (PendingQueues, error)
}

type Service struct {
	db      core.DB
	repo    Repository
	mailSvc core.EmailService
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{db: db, repo: repo, mailSvc: mailSvc}
}

func statusError(op, status string) error {
	return core.NewValidationError(
		errors.Wrapf(ErrInvalidStatus, "%s in %s", op, status),
		core.FieldError{Field: "status", Error: fmt.Sprintf("cannot %s a change request in status %q", op, status)},
	)
}

func (svc *Service) Create(ctx context.Context, nr NewRequest, requestedByID string) (Request, error) {
	now := time.Now()
	req := Request{
		ID:            uuid.New().String(),
		ProjectID:     nr.ProjectID,
		RequestedByID: requestedByID,
		Title:         nr.Title,
		Description:   nr.Description,
		Reason:        nr.Reason,
		Priority:      nr.Priority,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// the sequence is claimed inside the tx so numbers stay gapless per year
	err := svc.db.Transaction(ctx, func(tx core.DBExecutor) error {
		seq, err := svc.repo.NextSequence(ctx, now.Year(), tx)
		if err != nil {
			return err
		}
		req.RequestNumber = MakeRequestNumber(now.Year(), seq)
		return svc.repo.CreateRequest(ctx, &req, tx)
	})
	if err != nil {
		return Request{}, errors.Wrap(err, "creating change request")
	}
	return req, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Request, error) {
	filter.Clean()
	return svc.repo.QueryRequests(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequest(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateRequest) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusDraft {
		return Request{}, ErrNotEditable
	}
	if ur.Title != "" {
		req.Title = ur.Title
	}
	if ur.Description != "" {
		req.Description = ur.Description
	}
	if ur.Priority != "" {
		req.Priority = ur.Priority
	}
	req.Reason = ur.Reason
	req.UpdatedAt = time.Now()

	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "updating change request")
	}
	return req, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteRequestsByID(ctx, ids)
	return err
}

func (svc *Service) Submit(ctx context.Context, id string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusDraft {
		return Request{}, statusError("submit", req.Status)
	}
	now := time.Now()
	req.Status = StatusSubmitted
	req.SubmittedAt = now
	req.UpdatedAt = now
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "submitting change request")
	}
	return req, nil
}

func (svc *Service) StartReview(ctx context.Context, id string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusSubmitted {
		return Request{}, statusError("review", req.Status)
	}
	req.Status = StatusUnderReview
	req.UpdatedAt = time.Now()
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "reviewing change request")
	}
	return req, nil
}

func (svc *Service) AssessImpact(ctx context.Context, id string, na NewAssessment, assessedByID string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusUnderReview {
		return Request{}, statusError("assess", req.Status)
	}
	req.Impact = ImpactAssessment{
		ScheduleImpact: na.ScheduleImpact,
		CostImpact:     na.CostImpact,
		ScopeImpact:    na.ScopeImpact,
		AssessedByID:   assessedByID,
	}
	req.Status = StatusImpactAssessed
	req.UpdatedAt = time.Now()
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "assessing change request")
	}
	return req, nil
}

// RecordDecision captures the client's call on an assessed request.
// "proceed" approves it; "defer" and "withdraw" both reject it, the
// decision field keeps them apart. A deferred request can be raised
// again as a new one when the client is ready.
func (svc *Service) RecordDecision(ctx context.Context, id string, nd NewDecision, notify ...mail.Address) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusImpactAssessed && req.Status != StatusClientDecision {
		return Request{}, statusError("decide", req.Status)
	}
	now := time.Now()
	req.Decision = nd.Decision
	req.DecisionNotes = nd.Notes
	req.DecisionAt = now
	if nd.Decision == DecisionProceed {
		req.Status = StatusApproved
	} else {
		req.Status = StatusRejected
	}
	req.UpdatedAt = now
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "recording change request decision")
	}
	svc.notifyDecision(req, notify)
	return req, nil
}

func (svc *Service) notifyDecision(req Request, notify []mail.Address) {
	if len(notify) == 0 {
		return
	}
	msgs := make([]*core.EmailMessage, len(notify))
	for i, addr := range notify {
		msgs[i] = &core.EmailMessage{
			To:           []mail.Address{addr},
			Subject:      fmt.Sprintf("Decision recorded on change request %s", req.RequestNumber),
			TemplateName: "change-request-decision",
			TemplateData: struct {
				ContactName   string
				RequestNumber string
				RequestID     string
				Title         string
				Decision      string
				Notes         string
			}{addr.Name, req.RequestNumber, req.ID, req.Title, req.Decision, req.DecisionNotes},
		}
	}
	svc.mailSvc.SendMessages(msgs...)
}

// Sign records a typed-name signature for one party. An approved request
// needs both parties' signatures before implementation can start.
func (svc *Service) Sign(ctx context.Context, id string, ns NewSignature) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusApproved {
		return Request{}, statusError("sign", req.Status)
	}
	sig := Signature{Name: ns.Name, Title: ns.Title, SignedAt: time.Now()}
	switch ns.Party {
	case PartyClient:
		if req.ClientSignature.IsSigned() {
			return Request{}, ErrAlreadySigned
		}
		req.ClientSignature = sig
	case PartyProvider:
		if req.ProviderSignature.IsSigned() {
			return Request{}, ErrAlreadySigned
		}
		req.ProviderSignature = sig
	}
	req.UpdatedAt = sig.SignedAt
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "signing change request")
	}
	return req, nil
}

func (svc *Service) MarkImplemented(ctx context.Context, id string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusApproved {
		return Request{}, statusError("implement", req.Status)
	}
	if !req.FullySigned() {
		return Request{}, core.NewValidationError(nil, core.FieldError{
			Field: "status", Error: "change request must be signed by both parties before implementation",
		})
	}
	now := time.Now()
	req.Status = StatusImplemented
	req.ImplementedAt = now
	req.UpdatedAt = now
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "implementing change request")
	}
	return req, nil
}

// AttachDocument links a generated authorization document to the request.
func (svc *Service) AttachDocument(ctx context.Context, id, documentID string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	req.DocumentID = documentID
	req.UpdatedAt = time.Now()
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "attaching authorization document")
	}
	return req, nil
}

func (svc *Service) GetStatistics(ctx context.Context) (Statistics, error) {
	counts, err := svc.repo.CountByStatus(ctx)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "counting change requests")
	}
	stats := Statistics{ByStatus: counts}
	for status, n := range counts {
		stats.Total += n
		if status != StatusClosed && status != StatusRejected {
			stats.Open += n
		}
	}
	return stats, nil
}

// Pending lists the requests still waiting on someone. An approved request
// only stays pending while a signature is missing.
func (svc *Service) Pending(ctx context.Context) (PendingQueues, error) {
	reqs, err := svc.repo.QueryRequests(ctx, QueryFilter{Statuses: []string{
		StatusSubmitted, StatusUnderReview, StatusImpactAssessed, StatusClientDecision, StatusApproved,
	}}, nil)
	if err != nil {
		return PendingQueues{}, errors.Wrap(err, "querying pending change requests")
	}
	var queues PendingQueues
	for _, req := range reqs {
		switch req.Status {
		case StatusSubmitted, StatusUnderReview:
			queues.AwaitingReview = append(queues.AwaitingReview, req)
		case StatusImpactAssessed, StatusClientDecision:
			queues.AwaitingDecision = append(queues.AwaitingDecision, req)
		case StatusApproved:
			if !req.FullySigned() {
				queues.AwaitingSignature = append(queues.AwaitingSignature, req)
			}
		}
	}
	return queues, nil
}

func (svc *Service) Close(ctx context.Context, id string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusImplemented && req.Status != StatusRejected {
		return Request{}, statusError("close", req.Status)
	}
	now := time.Now()
	req.Status = StatusClosed
	req.ClosedAt = now
	req.UpdatedAt = now
	if err = svc.repo.UpdateRequest(ctx, &req); err != nil {
		return Request{}, errors.Wrap(err, "closing change request")
	}
	return req, nil
}
