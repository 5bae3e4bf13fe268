package service

import (
	"context"
	"sync"

	docstore "fleetdocs/internal/document/store"
	profilestore "fleetdocs/internal/profile/store"
)

// StoreTx runs one unit of work against transaction-bound document and
// profile stores. The review operation depends on it so the status transition
// and the aggregate recomputation commit or roll back together.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(docs docstore.Store, profiles profilestore.Store) error) error
}

// MemoryTx serializes units of work over the in-memory stores. There is no
// rollback; it exists so tests and broker-less dev mode satisfy the same
// contract the postgres runner does.
type MemoryTx struct {
	mu       sync.Mutex
	docs     docstore.Store
	profiles profilestore.Store
}

func NewMemoryTx(docs docstore.Store, profiles profilestore.Store) *MemoryTx {
	return &MemoryTx{docs: docs, profiles: profiles}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(docs docstore.Store, profiles profilestore.Store) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.docs, t.profiles)
}
