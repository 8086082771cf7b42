package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateEvent(ctx context.Context, ev *SecurityEvent, exec ...core.DBExecutor) error
	QueryEvents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]SecurityEvent, error)
	ResolveEventsByID(ctx context.Context, ids []string, resolvedByID string, at time.Time, exec ...core.DBExecutor) (int, error)
	CountEvents(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]EventCount, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error)
}

type ServiceInterface interface {
	Record(ctx context.Context, eventType, userID, username, ip, userAgent string, metadata map[string]interface{}) error
	Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]SecurityEvent, error)
	Resolve(ctx context.Context, ids []string, resolvedByID string) (int, error)
	GetStatistics(ctx context.Context, since time.Time) (Statistics, error)
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	Throttle() *LoginThrottle
}

type Service struct {
	db       core.DB
	repo     Repository
	throttle *LoginThrottle
	log      core.Logger
}

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, log core.Logger) *Service {
	return &Service{db: db, repo: repo, throttle: NewLoginThrottle(), log: log}
}

// Record writes a security event. Auditing never fails the calling
// operation; persistence errors are logged and swallowed.
func (svc *Service) Record(ctx context.Context, eventType, userID, username, ip, userAgent string, metadata map[string]interface{}) error {
	ev := SecurityEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Severity:  SeverityFor(eventType),
		UserID:    userID,
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := svc.repo.CreateEvent(ctx, &ev); err != nil {
		svc.log.Error("recording security event", err)
	}
	return nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]SecurityEvent, error) {
	filter.Clean()
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

// Resolve marks the given events as reviewed and reports how many changed.
// Already-resolved events keep their original reviewer.
func (svc *Service) Resolve(ctx context.Context, ids []string, resolvedByID string) (int, error) {
	n, err := svc.repo.ResolveEventsByID(ctx, ids, resolvedByID, time.Now())
	return n, errors.Wrap(err, "resolving security events")
}

func (svc *Service) GetStatistics(ctx context.Context, since time.Time) (Statistics, error) {
	counts, err := svc.repo.CountEvents(ctx, since)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "counting security events")
	}
	stats := Statistics{Since: since, ByType: make(map[string]int), BySeverity: make(map[string]int)}
	for _, c := range counts {
		stats.Total += c.Count
		stats.ByType[c.EventType] += c.Count
		stats.BySeverity[c.Severity] += c.Count
	}
	return stats, nil
}

// Cleanup removes resolved events recorded before the cutoff. Unresolved
// events are kept until someone reviews them.
func (svc *Service) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	n, err := svc.repo.DeleteResolvedBefore(ctx, olderThan)
	return n, errors.Wrap(err, "cleaning up security events")
}

func (svc *Service) Throttle() *LoginThrottle { return svc.throttle }
