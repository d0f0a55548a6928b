package repository

import (
	"context"
	"database/sql"
	"strings"
)

// sqlCommand is the subset of *sql.DB and *sql.Tx used by read methods
// that may run either inside or outside a transaction.
type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func command(db *sql.DB, tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}
	return db
}

// inClause returns "?,?,?" for len(ids) and the ids as driver args.
func inClause(ids []uint64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
