package db

import (
	"context"
	"database/sql"
)

// DBTX is what the project, outbox and job repositories run their SQL on.
// Passing the *sql.Tx from WithinTx instead of the pool puts a project save
// and its outbox append in the same transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
