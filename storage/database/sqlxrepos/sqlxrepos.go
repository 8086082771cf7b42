// Package sqlxrepos implements the domain repositories on PostgreSQL
// via sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

// executor selects the optional transaction executor, falling back to the
// repo's own handle.
func executor(db core.DB, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

// sqlxNamedExec runs a named query against whichever executor is in play.
func sqlxNamedExec(ctx context.Context, ex core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	return sqlx.NamedExecContext(ctx, ex, query, arg)
}

// trapNoRowsErr maps sql.ErrNoRows to the domain's not-found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// orderBy renders an ORDER BY clause, falling back to a default ordering.
func orderBy(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + def
	}
	parts := make([]string, len(ordering))
	for i, ord := range ordering {
		parts[i] = ord.String()
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// whereClause joins conditions with AND, empty when there are none.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func mustJSON(v interface{}) []byte {
	if v == nil {
		return []byte("null")
	}
	data, err := json.Marshal(v)
	if err != nil {
		// all persisted values are plain maps and slices; this cannot
		// fail for them
		panic(err)
	}
	return data
}

func fromJSON(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// deleteByID removes rows by primary key and reports how many went away.
func deleteByID(ctx context.Context, ex core.DBExecutor, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ph, args := inArgs(ids, 1)
	res, err := ex.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id IN %s", table, ph), args...)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", table)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// inArgs expands ids into a ($1,$2,...) placeholder list starting at `start`.
func inArgs(ids []string, start int) (string, []interface{}) {
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}
	return "(" + strings.Join(ph, ",") + ")", args
}
