package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/model"
)

const closeWait = time.Second

type SessionConfig struct {
	BaseURL string
	UserID  string
	// Token authenticates both HTTP calls and the relay handshake. Without
	// it the relay is joined with ?user_id=.
	Token      string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// Session ties a Store to one server: it loads the initial state, pumps
// relay events into the store and runs optimistic mutations against the
// HTTP API.
type Session struct {
	userID string
	api    *API
	store  *Store
	conn   *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

// Connect joins the relay, then loads the initial state. Events that arrive
// during the load are applied after it, which is safe because message
// events are versioned and the rest are idempotent upserts.
func Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.UserID == "" {
		return nil, errors.New("client session: UserID is required")
	}
	api, err := NewAPI(APIConfig{BaseURL: cfg.BaseURL, Token: cfg.Token, HTTPClient: cfg.HTTPClient})
	if err != nil {
		return nil, err
	}

	wsURL, err := relayURL(api.BaseURL(), cfg.UserID, cfg.Token)
	if err != nil {
		return nil, err
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("client session: relay handshake failed with %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("client session: dialing relay: %w", err)
	}

	s := &Session{
		userID: cfg.UserID,
		api:    api,
		store:  NewStore(cfg.UserID),
		conn:   conn,
		done:   make(chan struct{}),
	}

	ready := make(chan struct{})
	go s.pump(ready)

	err = s.Sync(ctx)
	close(ready)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func relayURL(baseURL, userID, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("client session: invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	} else {
		q.Set("user_id", userID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Session) pump(ready <-chan struct{}) {
	defer close(s.done)
	<-ready

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("relay connection lost", "user_id", s.userID, "error", err)
			}
			return
		}

		var ev model.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Debug("ignoring malformed relay frame", "error", err)
			continue
		}
		if err := s.store.ApplyEvent(ev); err != nil {
			return
		}
	}
}

// Sync reloads users, projects, tasks, polls and broadcast messages.
func (s *Session) Sync(ctx context.Context) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	projects, err := s.api.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	tasks, err := s.api.ListTasks(ctx, model.TaskFilterAll)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	polls, err := s.api.ListPolls(ctx)
	if err != nil {
		return fmt.Errorf("loading polls: %w", err)
	}
	// any pair query includes broadcasts
	msgs, err := s.api.ListMessages(ctx, s.userID, model.ReceiverAll, nil)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	return s.store.Load(Snapshot{Users: users, Projects: projects, Messages: msgs, Tasks: tasks, Polls: polls})
}

// Open selects the conversation with partnerID and loads its history.
func (s *Session) Open(ctx context.Context, partnerID string) error {
	msgs, err := s.api.ListMessages(ctx, s.userID, partnerID, s.store.Selection().ProjectID)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	if err := s.store.MergeMessages(msgs); err != nil {
		return err
	}
	return s.store.SelectConversation(partnerID)
}

func (s *Session) Store() *Store         { return s.store }
func (s *Session) API() *API             { return s.api }
func (s *Session) UserID() string        { return s.userID }
func (s *Session) Done() <-chan struct{} { return s.done }

// Close leaves the relay and tears down the store.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		_ = s.conn.Close()
		<-s.done
		s.store.Close()
	})
}

// Send posts a message as the session user. It shows up locally at once
// and is removed again if the server refuses it.
func (s *Session) Send(ctx context.Context, req dto.SendMessageRequest) (*model.Message, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.SenderID = s.userID

	params := req.ToParams()
	body, err := model.NewBody(params.Kind, params.Attachment, params.RefID)
	if err != nil {
		return nil, err
	}
	local := &model.Message{
		ID:         req.ID,
		SenderID:   s.userID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Body:       body,
		ProjectID:  req.ProjectID,
		ReplyTo:    req.ReplyTo,
		Version:    1,
		Timestamp:  time.Now().UTC(),
	}

	var sent *model.Message
	err = s.mutate(ctx, Mutation{Kind: MutationSend, Message: local}, func(ctx context.Context) (Confirmation, error) {
		msg, err := s.api.SendMessage(ctx, req)
		sent = msg
		return Confirmation{Message: msg}, err
	})
	return sent, err
}

func (s *Session) Edit(ctx context.Context, messageID, content string) error {
	m := Mutation{Kind: MutationEdit, MessageID: messageID, Content: content}
	return s.mutate(ctx, m, func(ctx context.Context) (Confirmation, error) {
		msg, err := s.api.EditMessage(ctx, messageID, content)
		return Confirmation{Message: msg}, err
	})
}

func (s *Session) Delete(ctx context.Context, messageID string) error {
	m := Mutation{Kind: MutationDelete, MessageID: messageID}
	return s.mutate(ctx, m, func(ctx context.Context) (Confirmation, error) {
		return Confirmation{}, s.api.DeleteMessage(ctx, messageID)
	})
}

func (s *Session) ToggleStatus(ctx context.Context, messageID string, flag model.StatusFlag) error {
	kind := MutationToggleRead
	if flag == model.StatusFlagDone {
		kind = MutationToggleDone
	}
	return s.mutate(ctx, Mutation{Kind: kind, MessageID: messageID}, func(ctx context.Context) (Confirmation, error) {
		msg, err := s.api.ToggleMessage(ctx, messageID, flag)
		return Confirmation{Message: msg}, err
	})
}

func (s *Session) Vote(ctx context.Context, pollID, optionID string) error {
	m := Mutation{Kind: MutationVote, PollID: pollID, OptionID: optionID}
	return s.mutate(ctx, m, func(ctx context.Context) (Confirmation, error) {
		poll, err := s.api.Vote(ctx, pollID, optionID, s.userID)
		return Confirmation{Poll: poll}, err
	})
}

func (s *Session) ToggleTask(ctx context.Context, taskID string) error {
	return s.mutate(ctx, Mutation{Kind: MutationToggleTask, TaskID: taskID}, func(ctx context.Context) (Confirmation, error) {
		task, err := s.api.ToggleTask(ctx, taskID)
		return Confirmation{Task: task}, err
	})
}

func (s *Session) CreateTask(ctx context.Context, messageID string, req dto.CreateTaskRequest) (*model.Task, error) {
	task, err := s.api.CreateTask(ctx, messageID, req)
	if err != nil {
		return nil, err
	}
	return task, s.store.ApplyEvent(model.Event{Type: model.EventTaskCreated, Task: task, MessageID: messageID})
}

func (s *Session) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.api.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	return s.store.ApplyEvent(model.Event{Type: model.EventTaskDeleted, TaskID: taskID})
}

func (s *Session) CreatePoll(ctx context.Context, messageID string, req dto.CreatePollRequest) (*model.Poll, error) {
	if req.CreatedBy == "" {
		req.CreatedBy = s.userID
	}
	poll, err := s.api.CreatePoll(ctx, messageID, req)
	if err != nil {
		return nil, err
	}
	return poll, s.store.ApplyEvent(model.Event{Type: model.EventPollCreated, Poll: poll, MessageID: messageID})
}

func (s *Session) SetStatus(ctx context.Context, status model.UserStatus) error {
	user, err := s.api.SetStatus(ctx, s.userID, status)
	if err != nil {
		return err
	}
	return s.store.ApplyEvent(model.Event{Type: model.EventUserStatus, User: user})
}

// mutate applies m locally, runs call, then confirms or rolls back.
func (s *Session) mutate(ctx context.Context, m Mutation, call func(context.Context) (Confirmation, error)) error {
	mutationID, err := s.store.ApplyLocalMutation(m)
	if err != nil {
		return err
	}
	c, err := call(ctx)
	if err != nil {
		if rerr := s.store.Reject(mutationID, err); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return s.store.Confirm(mutationID, c)
}
