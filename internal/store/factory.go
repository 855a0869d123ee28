package store

import (
	"basegraph.app/chat/core/db"
)

// Stores hands out Postgres-backed stores bound to one connection or
// transaction.
type Stores struct {
	q db.DBTX
}

func NewStores(q db.DBTX) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Users() UserStore {
	return newUserStore(s.q)
}

func (s *Stores) Accounts() AccountStore {
	return newAccountStore(s.q)
}

func (s *Stores) Projects() ProjectStore {
	return newProjectStore(s.q)
}

func (s *Stores) Messages() MessageStore {
	return newMessageStore(s.q)
}

func (s *Stores) Tasks() TaskStore {
	return newTaskStore(s.q)
}

func (s *Stores) Polls() PollStore {
	return newPollStore(s.q)
}
