package service

import (
	"context"

	"basegraph.app/chat/core/db"
	"basegraph.app/chat/internal/store"
)

// StoreProvider is the set of stores an operation may touch.
type StoreProvider interface {
	Users() store.UserStore
	Accounts() store.AccountStore
	Projects() store.ProjectStore
	Messages() store.MessageStore
	Tasks() store.TaskStore
	Polls() store.PollStore
}

// TxRunner runs fn with stores bound to a single transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

func NewTxRunner(database *db.DB) TxRunner {
	return &dbTxRunner{db: database}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q db.DBTX) error {
		return fn(store.NewStores(q))
	})
}

type memoryTxRunner struct {
	stores *store.MemoryStores
}

func NewMemoryTxRunner(stores *store.MemoryStores) TxRunner {
	return &memoryTxRunner{stores: stores}
}

func (r *memoryTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.stores.WithTx(ctx, func(tx *store.MemoryStores) error {
		return fn(tx)
	})
}
