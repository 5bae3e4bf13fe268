package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	docservice "fleetdocs/internal/document/service"
	docstore "fleetdocs/internal/document/store"
	profilestore "fleetdocs/internal/profile/store"
)

// postgresTx runs registry units of work in one database transaction, so a
// review's status transition and the aggregate recomputation commit or roll
// back together. The transaction-bound document store locks reviewed rows
// FOR UPDATE.
type postgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

var _ docservice.StoreTx = (*postgresTx)(nil)

func newPostgresTx(db *sql.DB, timeout time.Duration) *postgresTx {
	return &postgresTx{db: db, timeout: timeout}
}

func (t *postgresTx) RunInTx(ctx context.Context, fn func(docs docstore.Store, profiles profilestore.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(docstore.NewPostgresTx(tx), profilestore.NewPostgresTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
