package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sumano/oms/core"
	"github.com/sumano/oms/core/audit"
)

type securityEventRow struct {
	ID           string      `db:"id"`
	EventType    string      `db:"event_type"`
	Severity     string      `db:"severity"`
	UserID       null.String `db:"user_id"`
	Username     string      `db:"username"`
	IPAddress    string      `db:"ip_address"`
	UserAgent    string      `db:"user_agent"`
	Metadata     []byte      `db:"metadata"`
	Resolved     bool        `db:"resolved"`
	ResolvedByID null.String `db:"resolved_by_id"`
	ResolvedAt   null.Time   `db:"resolved_at"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (r securityEventRow) toEvent() (audit.SecurityEvent, error) {
	ev := audit.SecurityEvent{
		ID:           r.ID,
		EventType:    r.EventType,
		Severity:     r.Severity,
		UserID:       r.UserID.String,
		Username:     r.Username,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
		Resolved:     r.Resolved,
		ResolvedByID: r.ResolvedByID.String,
		ResolvedAt:   r.ResolvedAt.Time,
		CreatedAt:    r.CreatedAt,
	}
	return ev, fromJSON(r.Metadata, &ev.Metadata)
}

func newSecurityEventRow(ev audit.SecurityEvent) securityEventRow {
	return securityEventRow{
		ID:           ev.ID,
		EventType:    ev.EventType,
		Severity:     ev.Severity,
		UserID:       null.NewString(ev.UserID, ev.UserID != ""),
		Username:     ev.Username,
		IPAddress:    ev.IPAddress,
		UserAgent:    ev.UserAgent,
		Metadata:     mustJSON(ev.Metadata),
		Resolved:     ev.Resolved,
		ResolvedByID: null.NewString(ev.ResolvedByID, ev.ResolvedByID != ""),
		ResolvedAt:   null.NewTime(ev.ResolvedAt, !ev.ResolvedAt.IsZero()),
		CreatedAt:    ev.CreatedAt,
	}
}

const securityEventCols = `id, event_type, severity, user_id, username, ip_address, user_agent,
	metadata, resolved, resolved_by_id, resolved_at, created_at`

type auditRepository struct {
	db core.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db core.DB) audit.Repository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEvent(ctx context.Context, ev *audit.SecurityEvent, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	q := `
		INSERT INTO security_event (` + securityEventCols + `)
		VALUES (:id, :event_type, :severity, :user_id, :username, :ip_address, :user_agent,
			:metadata, :resolved, :resolved_by_id, :resolved_at, :created_at)`
	_, err := sqlxNamedExec(ctx, ex, q, newSecurityEventRow(*ev))
	return errors.Wrap(err, "creating security event")
}

func (repo *auditRepository) QueryEvents(ctx context.Context, filter audit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]audit.SecurityEvent, error) {
	ex := executor(repo.db, exec)

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.EventType != "" {
		conds = append(conds, "event_type = "+arg(filter.EventType))
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = "+arg(filter.Severity))
	}
	if filter.Resolved != "" {
		conds = append(conds, "resolved = "+arg(filter.Resolved == "true"))
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = "+arg(filter.UserID))
	}
	if filter.IPAddress != "" {
		conds = append(conds, "ip_address = "+arg(filter.IPAddress))
	}
	if filter.From != "" {
		conds = append(conds, "created_at >= "+arg(filter.From))
	}
	if filter.To != "" {
		conds = append(conds, "created_at <= "+arg(filter.To))
	}

	q := `SELECT ` + securityEventCols + ` FROM security_event` + whereClause(conds) + orderBy(ordering, "created_at DESC")
	var rows []securityEventRow
	if err := ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying security events")
	}
	evs := make([]audit.SecurityEvent, len(rows))
	for i, row := range rows {
		ev, err := row.toEvent()
		if err != nil {
			return nil, errors.Wrap(err, "decoding security event")
		}
		evs[i] = ev
	}
	return evs, nil
}

func (repo *auditRepository) ResolveEventsByID(ctx context.Context, ids []string, resolvedByID string, at time.Time, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ex := executor(repo.db, exec)
	ph, args := inArgs(ids, 3)
	q := `UPDATE security_event SET resolved = TRUE, resolved_by_id = $1, resolved_at = $2 WHERE NOT resolved AND id IN ` + ph
	res, err := ex.ExecContext(ctx, q, append([]interface{}{resolvedByID, at}, args...)...)
	if err != nil {
		return 0, errors.Wrap(err, "resolving security events")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo *auditRepository) CountEvents(ctx context.Context, since time.Time, exec ...core.DBExecutor) ([]audit.EventCount, error) {
	ex := executor(repo.db, exec)
	var rows []struct {
		EventType string `db:"event_type"`
		Severity  string `db:"severity"`
		Count     int    `db:"count"`
	}
	q := `
		SELECT event_type, severity, COUNT(*) AS count FROM security_event
		WHERE created_at >= $1 GROUP BY event_type, severity`
	if err := ex.SelectContext(ctx, &rows, q, since); err != nil {
		return nil, errors.Wrap(err, "counting security events")
	}
	counts := make([]audit.EventCount, len(rows))
	for i, row := range rows {
		counts[i] = audit.EventCount{EventType: row.EventType, Severity: row.Severity, Count: row.Count}
	}
	return counts, nil
}

func (repo *auditRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error) {
	ex := executor(repo.db, exec)
	res, err := ex.ExecContext(ctx, `DELETE FROM security_event WHERE resolved AND created_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "deleting resolved security events")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
