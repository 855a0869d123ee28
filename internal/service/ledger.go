package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/chat/common/id"
	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/store"
)

type SendParams struct {
	// ID is optional. Clients that render optimistically supply their own.
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	Kind       model.MessageKind
	Attachment model.Attachment
	RefID      string
	ProjectID  *string
	ReplyTo    *string
}

// LedgerService owns the message lifecycle: send, edit, delete, status
// toggles and conversation queries.
type LedgerService interface {
	Send(ctx context.Context, params SendParams) (*model.Message, error)
	Edit(ctx context.Context, messageID, content string) (*model.Message, error)
	// Delete is idempotent and removes derived tasks and polls with the message.
	Delete(ctx context.Context, messageID string) error
	ToggleStatus(ctx context.Context, messageID string, flag model.StatusFlag) (*model.Message, error)
	Query(ctx context.Context, a, b string, projectID *string) ([]model.Message, error)
}

type ledgerService struct {
	messages store.MessageStore
	tx       TxRunner
	index    IndexService
	presence PresenceService
	events   EventSink
	clock    *Clock
}

func NewLedgerService(messages store.MessageStore, tx TxRunner, index IndexService, presence PresenceService, events EventSink, clock *Clock) LedgerService {
	if events == nil {
		events = NopSink()
	}
	if clock == nil {
		clock = NewClock(nil)
	}
	return &ledgerService{
		messages: messages,
		tx:       tx,
		index:    index,
		presence: presence,
		events:   events,
		clock:    clock,
	}
}

func (s *ledgerService) Send(ctx context.Context, params SendParams) (*model.Message, error) {
	if strings.TrimSpace(params.SenderID) == "" {
		return nil, invalid("sender_id", "must not be empty")
	}
	if strings.TrimSpace(params.ReceiverID) == "" {
		return nil, invalid("receiver_id", "must not be empty")
	}
	body, err := model.NewBody(params.Kind, params.Attachment, params.RefID)
	if err != nil {
		return nil, invalid("type", err.Error())
	}
	if body.Kind() == model.MessageKindText && strings.TrimSpace(params.Content) == "" {
		return nil, invalid("content", "text message must not be empty")
	}

	msgID := params.ID
	if msgID == "" {
		msgID = id.NewString()
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(msgID),
		UserID:    logger.Ptr(params.SenderID),
		ProjectID: params.ProjectID,
		Component: "chat.service.ledger",
	})
	sc := logger.StartSpan(ctx, "ledger.send")
	defer sc.End()
	ctx = sc.Context()

	msg := &model.Message{
		ID:         msgID,
		SenderID:   params.SenderID,
		ReceiverID: params.ReceiverID,
		Content:    params.Content,
		Body:       body,
		ProjectID:  params.ProjectID,
		ReplyTo:    params.ReplyTo,
		Version:    1,
		Timestamp:  s.clock.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			sc.RecordError(err)
			slog.ErrorContext(ctx, "failed to store message", "error", err)
		}
		return nil, storeErr(err, "creating message", "message", msgID)
	}

	if s.presence != nil {
		if err := s.presence.OnMessageDelivered(ctx, msg); err != nil {
			// the message is committed; counters are advisory
			slog.WarnContext(ctx, "failed to update unread counters", "error", err)
		}
	}

	s.events.Publish(ctx, model.Event{Type: model.EventMessageCreated, Message: msg, At: msg.Timestamp})
	slog.DebugContext(ctx, "message sent", "receiver_id", msg.ReceiverID, "type", msg.Kind())
	return msg, nil
}

func (s *ledgerService) Edit(ctx context.Context, messageID, content string) (*model.Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(messageID), Component: "chat.service.ledger"})

	if strings.TrimSpace(content) == "" {
		existing, err := s.messages.GetByID(ctx, messageID)
		if err != nil {
			return nil, storeErr(err, "getting message", "message", messageID)
		}
		if existing.Kind() == model.MessageKindText {
			return nil, invalid("content", "text message must not be empty")
		}
	}

	msg, err := s.messages.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, storeErr(err, "editing message", "message", messageID)
	}

	s.events.Publish(ctx, model.Event{Type: model.EventMessageEdited, Message: msg, MessageID: msg.ID, At: s.clock.Now()})
	return msg, nil
}

func (s *ledgerService) Delete(ctx context.Context, messageID string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(messageID), Component: "chat.service.ledger"})
	sc := logger.StartSpan(ctx, "ledger.delete")
	defer sc.End()
	ctx = sc.Context()

	var (
		refs    DeletedRefs
		removed bool
	)
	err := s.tx.WithTx(ctx, func(sp StoreProvider) error {
		var err error
		refs, err = s.index.OnMessageDeleted(ctx, sp, messageID)
		if err != nil {
			return err
		}
		removed, err = sp.Messages().Delete(ctx, messageID)
		if err != nil {
			return fmt.Errorf("deleting message: %w", err)
		}
		return nil
	})
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "failed to delete message", "error", err)
		return err
	}
	if !removed {
		return nil
	}

	now := s.clock.Now()
	for _, taskID := range refs.TaskIDs {
		s.events.Publish(ctx, model.Event{Type: model.EventTaskDeleted, TaskID: taskID, MessageID: messageID, At: now})
	}
	s.events.Publish(ctx, model.Event{Type: model.EventMessageDeleted, MessageID: messageID, At: now})
	slog.InfoContext(ctx, "message deleted", "tasks_removed", len(refs.TaskIDs), "polls_removed", len(refs.PollIDs))
	return nil
}

func (s *ledgerService) ToggleStatus(ctx context.Context, messageID string, flag model.StatusFlag) (*model.Message, error) {
	switch flag {
	case model.StatusFlagRead, model.StatusFlagDone:
	default:
		return nil, invalid("field", fmt.Sprintf("unknown status flag %q", flag))
	}

	msg, err := s.messages.ToggleFlag(ctx, messageID, flag)
	if err != nil {
		return nil, storeErr(err, "toggling message status", "message", messageID)
	}

	s.events.Publish(ctx, model.Event{Type: model.EventMessageStatus, Message: msg, MessageID: msg.ID, At: s.clock.Now()})
	return msg, nil
}

func (s *ledgerService) Query(ctx context.Context, a, b string, projectID *string) ([]model.Message, error) {
	if a == "" || b == "" {
		return nil, invalid("sender_id/receiver_id", "both participants are required")
	}
	msgs, err := s.messages.ListConversation(ctx, a, b, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}
