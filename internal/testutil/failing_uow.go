package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/ideaflow/internal/db"
)

// FailingWriteUoW runs a project transaction whose Nth matching write
// returns Err, so tests can check that a project save and its outbox append
// are rolled back together. Only ExecContext counts as a write. Match
// restricts counting to statements containing it; empty matches every
// write. Nth starts at 1.
type FailingWriteUoW struct {
	DB    *sql.DB
	Match string
	Nth   int
	Err   error

	mu     sync.Mutex
	writes []string
}

// Writes lists the statements executed in the last transaction, including
// the one that failed.
func (u *FailingWriteUoW) Writes() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.writes...)
}

func (u *FailingWriteUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning project transaction: %w", err)
	}
	u.mu.Lock()
	u.writes = nil
	u.mu.Unlock()

	if err := fn(ctx, &failingTx{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type failingTx struct {
	db.DBTX
	uow     *FailingWriteUoW
	matched int
}

func (f *failingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.uow.mu.Lock()
	f.uow.writes = append(f.uow.writes, query)
	f.uow.mu.Unlock()

	if strings.Contains(query, f.uow.Match) {
		f.matched++
		if f.matched == f.uow.Nth {
			return nil, f.uow.Err
		}
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
