package client

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"basegraph.app/chat/internal/model"
)

var ErrUnknownTarget = errors.New("mutation target not in local store")

type MutationKind string

const (
	MutationSend       MutationKind = "send"
	MutationEdit       MutationKind = "edit"
	MutationDelete     MutationKind = "delete"
	MutationToggleRead MutationKind = "toggle_read"
	MutationToggleDone MutationKind = "toggle_done"
	MutationVote       MutationKind = "vote"
	MutationToggleTask MutationKind = "toggle_task"
)

// Mutation is a local change applied before the server confirms it. Only
// the fields its Kind needs are read.
type Mutation struct {
	Kind MutationKind

	// Message is the full record for MutationSend.
	Message   *model.Message
	MessageID string
	Content   string

	PollID   string
	OptionID string

	TaskID string
}

// Pending is an applied mutation still waiting for Confirm or Reject.
type Pending struct {
	ID        string
	Mutation  Mutation
	AppliedAt time.Time
}

// Confirmation carries the server's copy of whatever the mutation touched.
// Nil fields leave the local record alone.
type Confirmation struct {
	Message *model.Message
	Task    *model.Task
	Poll    *model.Poll
}

type pendingMutation struct {
	Pending

	// prior state of the touched records; nil means it did not exist
	message *model.Message
	tasks   []*model.Task
	polls   []*model.Poll
}

// ApplyLocalMutation applies m optimistically and returns the id to pass to
// Confirm or Reject.
func (s *Store) ApplyLocalMutation(m Mutation) (string, error) {
	var (
		mutationID string
		applyErr   error
	)
	err := s.exec(func(st *state) bool {
		p, err := st.applyLocal(m)
		if err != nil {
			applyErr = err
			return false
		}
		mutationID = p.ID
		st.pending[p.ID] = p
		return true
	})
	if err != nil {
		return "", err
	}
	return mutationID, applyErr
}

// Confirm marks a mutation as accepted and adopts the server's records.
func (s *Store) Confirm(mutationID string, c Confirmation) error {
	return s.exec(func(st *state) bool {
		if _, ok := st.pending[mutationID]; !ok {
			return false
		}
		delete(st.pending, mutationID)
		if c.Message != nil {
			cur, ok := st.messages[c.Message.ID]
			if !ok || c.Message.Version >= cur.Version {
				st.putMessage(*c.Message)
			}
		}
		if c.Task != nil {
			st.tasks[c.Task.ID] = c.Task.Clone()
		}
		if c.Poll != nil {
			st.polls[c.Poll.ID] = c.Poll.Clone()
		}
		return true
	})
}

// Reject logs cause and rolls the mutation back. A server version that
// arrived while the mutation was pending is kept.
func (s *Store) Reject(mutationID string, cause error) error {
	return s.exec(func(st *state) bool {
		p, ok := st.pending[mutationID]
		if !ok {
			return false
		}
		delete(st.pending, mutationID)
		slog.Warn("local mutation rejected",
			"mutation_id", mutationID,
			"kind", p.Mutation.Kind,
			"error", cause)
		st.rollback(p)
		return true
	})
}

func (st *state) applyLocal(m Mutation) (*pendingMutation, error) {
	p := &pendingMutation{Pending: Pending{ID: uuid.NewString(), Mutation: m, AppliedAt: time.Now()}}

	switch m.Kind {
	case MutationSend:
		if m.Message == nil || m.Message.ID == "" {
			return nil, fmt.Errorf("send mutation needs a message with an id")
		}
		if _, exists := st.messages[m.Message.ID]; exists {
			return nil, fmt.Errorf("message %s already in store", m.Message.ID)
		}
		st.addIncoming(*m.Message)

	case MutationEdit, MutationToggleRead, MutationToggleDone:
		cur, ok := st.messages[m.MessageID]
		if !ok {
			return nil, fmt.Errorf("%w: message %s", ErrUnknownTarget, m.MessageID)
		}
		prior := *cur
		p.message = &prior
		switch m.Kind {
		case MutationEdit:
			cur.Content = m.Content
			cur.IsEdited = true
		case MutationToggleRead:
			cur.IsRead = !cur.IsRead
		case MutationToggleDone:
			cur.IsDone = !cur.IsDone
		}

	case MutationDelete:
		cur, ok := st.messages[m.MessageID]
		if !ok {
			return nil, fmt.Errorf("%w: message %s", ErrUnknownTarget, m.MessageID)
		}
		prior := *cur
		p.message = &prior
		for _, t := range st.tasks {
			if t.MessageID != nil && *t.MessageID == m.MessageID {
				p.tasks = append(p.tasks, t.Clone())
			}
		}
		for _, pl := range st.polls {
			if pl.MessageID == m.MessageID {
				p.polls = append(p.polls, pl.Clone())
			}
		}
		st.removeMessage(m.MessageID)

	case MutationVote:
		poll, ok := st.polls[m.PollID]
		if !ok {
			return nil, fmt.Errorf("%w: poll %s", ErrUnknownTarget, m.PollID)
		}
		p.polls = []*model.Poll{poll.Clone()}
		if !poll.ApplyVote(m.OptionID, st.me) {
			return nil, fmt.Errorf("%w: option %s", ErrUnknownTarget, m.OptionID)
		}

	case MutationToggleTask:
		task, ok := st.tasks[m.TaskID]
		if !ok {
			return nil, fmt.Errorf("%w: task %s", ErrUnknownTarget, m.TaskID)
		}
		p.tasks = []*model.Task{task.Clone()}
		task.Completed = !task.Completed

	default:
		return nil, fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
	return p, nil
}

func (st *state) rollback(p *pendingMutation) {
	switch p.Mutation.Kind {
	case MutationSend:
		msg, ok := st.messages[p.Mutation.Message.ID]
		if !ok {
			return
		}
		st.bumpUnread(msg, -1)
		delete(st.messages, msg.ID)

	case MutationEdit, MutationToggleRead, MutationToggleDone:
		cur, ok := st.messages[p.message.ID]
		if !ok || cur.Version > p.message.Version {
			return
		}
		st.putMessage(*p.message)

	case MutationDelete:
		if _, ok := st.messages[p.message.ID]; !ok {
			st.putMessage(*p.message)
		}
		for _, t := range p.tasks {
			if _, ok := st.tasks[t.ID]; !ok {
				st.tasks[t.ID] = t
			}
		}
		for _, pl := range p.polls {
			if _, ok := st.polls[pl.ID]; !ok {
				st.polls[pl.ID] = pl
			}
		}

	case MutationVote, MutationToggleTask:
		for _, t := range p.tasks {
			st.tasks[t.ID] = t
		}
		for _, pl := range p.polls {
			st.polls[pl.ID] = pl
		}
	}
}
