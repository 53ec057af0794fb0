package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrScopeAlreadyClosed is returned when Commit is called on a Tx that has
// already been committed or rolled back.
var ErrScopeAlreadyClosed = errors.New("transaction scope already closed")

// Tx wraps *sql.Tx with a defer-safe single-use guard: Rollback is a no-op
// once the Tx is closed, so `defer tx.Rollback()` following an explicit
// Commit never errors; a second Commit returns ErrScopeAlreadyClosed.
type Tx struct {
	*sql.Tx

	mu     sync.Mutex
	closed bool
}

// withScope opens a transaction against db and returns it wrapped. Callers
// must call Commit on success; a deferred Rollback after Commit is a no-op.
func withScope(ctx context.Context, db *sql.DB) (*Tx, error) {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &Tx{Tx: sqlTx}, nil
}

// Commit commits the underlying transaction once. Subsequent calls return
// ErrScopeAlreadyClosed.
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrScopeAlreadyClosed
	}

	t.closed = true

	return t.Tx.Commit()
}

// Rollback rolls back the underlying transaction once. Safe to call after
// a successful Commit (no-op) or multiple times.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	return t.Tx.Rollback()
}
