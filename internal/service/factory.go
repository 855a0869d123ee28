package service

import (
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/store"
)

type Services struct {
	stores  StoreProvider
	tx      TxRunner
	unread  store.UnreadCounter
	events  EventSink
	authCfg config.AuthConfig
	clock   *Clock
}

func NewServices(stores StoreProvider, tx TxRunner, unread store.UnreadCounter, events EventSink, authCfg config.AuthConfig) *Services {
	if events == nil {
		events = NopSink()
	}
	return &Services{
		stores:  stores,
		tx:      tx,
		unread:  unread,
		events:  events,
		authCfg: authCfg,
		clock:   NewClock(nil),
	}
}

func (s *Services) Ledger() LedgerService {
	return NewLedgerService(s.stores.Messages(), s.tx, s.Index(), s.Presence(), s.events, s.clock)
}

func (s *Services) Index() IndexService {
	return NewIndexService(s.stores, s.tx, s.events, s.clock)
}

func (s *Services) Presence() PresenceService {
	return NewPresenceService(s.stores.Users(), s.unread, s.events, s.clock)
}

func (s *Services) Directory() DirectoryService {
	return NewDirectoryService(s.stores.Users(), s.stores.Projects())
}

func (s *Services) Auth() AuthService {
	return NewAuthService(s.stores, s.tx, s.authCfg)
}
