package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

// PresenceService tracks user status and unread counters.
type PresenceService interface {
	SetStatus(ctx context.Context, userID string, status model.UserStatus) (*model.User, error)
	// OnMessageDelivered bumps the unread counter of every recipient other
	// than the sender.
	OnMessageDelivered(ctx context.Context, msg *model.Message) error
	ResetUnread(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

type presenceService struct {
	users  store.UserStore
	unread store.UnreadCounter
	events EventSink
	clock  *Clock
}

func NewPresenceService(users store.UserStore, unread store.UnreadCounter, events EventSink, clock *Clock) PresenceService {
	if events == nil {
		events = NopSink()
	}
	if clock == nil {
		clock = NewClock(nil)
	}
	return &presenceService{users: users, unread: unread, events: events, clock: clock}
}

func (s *presenceService) SetStatus(ctx context.Context, userID string, status model.UserStatus) (*model.User, error) {
	if _, err := model.ParseUserStatus(string(status)); err != nil {
		return nil, invalid("status", err.Error())
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID), Component: "chat.service.presence"})

	user, err := s.users.UpdateStatus(ctx, userID, status)
	if err != nil {
		return nil, storeErr(err, "updating status", "user", userID)
	}
	if user.UnreadMessages, err = s.unread.Get(ctx, userID); err != nil {
		slog.WarnContext(ctx, "failed to read unread counter", "error", err)
	}

	s.events.Publish(ctx, model.Event{Type: model.EventUserStatus, User: user, At: s.clock.Now()})
	slog.InfoContext(ctx, "user status changed", "status", status)
	return user, nil
}

func (s *presenceService) OnMessageDelivered(ctx context.Context, msg *model.Message) error {
	var recipients []string
	if msg.IsBroadcast() {
		users, err := s.users.List(ctx)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		for _, u := range users {
			if u.ID != msg.SenderID {
				recipients = append(recipients, u.ID)
			}
		}
	} else if msg.ReceiverID != msg.SenderID {
		if _, err := s.users.GetByID(ctx, msg.ReceiverID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				slog.DebugContext(ctx, "receiver is not a known user; skipping unread counter", "receiver_id", msg.ReceiverID)
				return nil
			}
			return fmt.Errorf("getting receiver: %w", err)
		}
		recipients = append(recipients, msg.ReceiverID)
	}

	if err := s.unread.Increment(ctx, recipients...); err != nil {
		return err
	}
	return nil
}

func (s *presenceService) ResetUnread(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return storeErr(err, "getting user", "user", userID)
	}
	return s.unread.Reset(ctx, userID)
}

func (s *presenceService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	counts, err := s.unread.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].UnreadMessages = counts[users[i].ID]
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
