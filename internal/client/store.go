package client

import (
	"errors"
	"log/slog"
	"sync"

	"basegraph.app/chat/internal/model"
)

var ErrStoreClosed = errors.New("client store closed")

// Snapshot is the full server state loaded on connect.
type Snapshot struct {
	Users    []model.User
	Projects []model.Project
	Messages []model.Message
	Tasks    []model.Task
	Polls    []model.Poll
}

// Store is the local mirror of one user's view of the workspace. Every
// operation runs on a single goroutine, so handlers never interleave and
// each call returns after its change is applied.
type Store struct {
	ops       chan func(*state)
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

type state struct {
	me       string
	messages map[string]*model.Message
	users    map[string]*model.User
	projects []model.Project
	tasks    map[string]*model.Task
	polls    map[string]*model.Poll
	pending  map[string]*pendingMutation
	seq      int64

	partner string
	project *string
}

func NewStore(currentUserID string) *Store {
	s := &Store{
		ops:  make(chan func(*state)),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		subs: make(map[chan struct{}]struct{}),
	}
	go s.loop(newState(currentUserID))
	return s
}

func newState(me string) *state {
	return &state{
		me:       me,
		messages: make(map[string]*model.Message),
		users:    make(map[string]*model.User),
		tasks:    make(map[string]*model.Task),
		polls:    make(map[string]*model.Poll),
		pending:  make(map[string]*pendingMutation),
	}
}

func (s *Store) loop(st *state) {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op(st)
		case <-s.quit:
			return
		}
	}
}

// exec runs fn on the store goroutine and waits for it. Subscribers are
// notified when fn reports a change.
func (s *Store) exec(fn func(*state) bool) error {
	ran := make(chan struct{})
	var changed bool
	op := func(st *state) {
		defer close(ran)
		changed = fn(st)
	}
	select {
	case s.ops <- op:
	case <-s.quit:
		return ErrStoreClosed
	}
	<-ran
	if changed {
		s.notify()
	}
	return nil
}

// Close stops the store goroutine and closes every subscription.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done

		s.subMu.Lock()
		for ch := range s.subs {
			close(ch)
		}
		s.subs = nil
		s.subMu.Unlock()
	})
}

// Subscribe returns a channel that receives a value after each change.
// Notifications coalesce: a slow reader sees one pending signal, not one per
// change. The channel is closed by cancel or Close.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	if s.subs == nil {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Load replaces the mirror with snap. Pending mutations are dropped.
func (s *Store) Load(snap Snapshot) error {
	return s.exec(func(st *state) bool {
		fresh := newState(st.me)
		fresh.partner, fresh.project = st.partner, st.project
		for i := range snap.Users {
			u := snap.Users[i]
			fresh.users[u.ID] = &u
		}
		fresh.projects = append([]model.Project(nil), snap.Projects...)
		for i := range snap.Messages {
			fresh.putMessage(snap.Messages[i])
		}
		for i := range snap.Tasks {
			fresh.tasks[snap.Tasks[i].ID] = snap.Tasks[i].Clone()
		}
		for i := range snap.Polls {
			fresh.polls[snap.Polls[i].ID] = snap.Polls[i].Clone()
		}
		*st = *fresh
		return true
	})
}

// MergeMessages adds messages fetched after Load, e.g. when a conversation
// is opened. Known ids keep whichever copy has the higher version.
func (s *Store) MergeMessages(msgs []model.Message) error {
	return s.exec(func(st *state) bool {
		changed := false
		for _, msg := range msgs {
			if cur, ok := st.messages[msg.ID]; ok && cur.Version >= msg.Version {
				continue
			}
			st.putMessage(msg)
			changed = true
		}
		return changed
	})
}

// ApplyIncoming adds a newly delivered message and bumps unread counters
// the way the server does. Duplicate ids are ignored.
func (s *Store) ApplyIncoming(msg model.Message) error {
	return s.exec(func(st *state) bool {
		return st.addIncoming(msg)
	})
}

// ApplyEvent applies a relay event. Message events older than the local
// record are ignored.
func (s *Store) ApplyEvent(ev model.Event) error {
	return s.exec(func(st *state) bool {
		return st.applyEvent(ev)
	})
}

// SelectConversation opens the conversation with partnerID and clears that
// user's local unread badge.
func (s *Store) SelectConversation(partnerID string) error {
	return s.exec(func(st *state) bool {
		st.partner = partnerID
		if u, ok := st.users[partnerID]; ok {
			u.UnreadMessages = 0
		}
		return true
	})
}

// SelectProject sets the project filter; nil shows every project.
func (s *Store) SelectProject(projectID *string) error {
	return s.exec(func(st *state) bool {
		if projectID != nil {
			p := *projectID
			projectID = &p
		}
		st.project = projectID
		return true
	})
}

func (st *state) putMessage(msg model.Message) {
	if msg.Seq == 0 {
		if cur, ok := st.messages[msg.ID]; ok {
			msg.Seq = cur.Seq
		}
	}
	if msg.Seq > st.seq {
		st.seq = msg.Seq
	}
	m := msg
	st.messages[m.ID] = &m
}

func (st *state) addIncoming(msg model.Message) bool {
	if _, ok := st.messages[msg.ID]; ok {
		return false
	}
	if msg.Seq == 0 {
		// not yet stored server side; order after everything known
		st.seq++
		msg.Seq = st.seq
	}
	st.putMessage(msg)
	st.bumpUnread(&msg, 1)
	return true
}

// bumpUnread adds delta to every recipient other than the sender.
func (st *state) bumpUnread(msg *model.Message, delta int64) {
	apply := func(u *model.User) {
		u.UnreadMessages += delta
		if u.UnreadMessages < 0 {
			u.UnreadMessages = 0
		}
	}
	if msg.IsBroadcast() {
		for id, u := range st.users {
			if id != msg.SenderID {
				apply(u)
			}
		}
		return
	}
	if msg.ReceiverID == msg.SenderID {
		return
	}
	if u, ok := st.users[msg.ReceiverID]; ok {
		apply(u)
	}
}

func (st *state) applyEvent(ev model.Event) bool {
	switch ev.Type {
	case model.EventMessageCreated:
		if ev.Message == nil {
			return false
		}
		return st.addIncoming(*ev.Message)

	case model.EventMessageEdited, model.EventMessageStatus:
		if ev.Message == nil {
			return false
		}
		cur, ok := st.messages[ev.Message.ID]
		if !ok || ev.Message.Version <= cur.Version {
			return false
		}
		st.putMessage(*ev.Message)
		return true

	case model.EventMessageDeleted:
		return st.removeMessage(ev.MessageID)

	case model.EventUserStatus:
		if ev.User == nil {
			return false
		}
		u := *ev.User
		if cur, ok := st.users[u.ID]; ok {
			// unread badges are tracked locally
			u.UnreadMessages = cur.UnreadMessages
		}
		st.users[u.ID] = &u
		return true

	case model.EventTaskCreated, model.EventTaskUpdated:
		if ev.Task == nil {
			return false
		}
		st.tasks[ev.Task.ID] = ev.Task.Clone()
		return true

	case model.EventTaskDeleted:
		if _, ok := st.tasks[ev.TaskID]; !ok {
			return false
		}
		delete(st.tasks, ev.TaskID)
		return true

	case model.EventPollCreated, model.EventPollVoted:
		if ev.Poll == nil {
			return false
		}
		st.polls[ev.Poll.ID] = ev.Poll.Clone()
		return true

	default:
		slog.Debug("ignoring unknown event", "type", ev.Type)
		return false
	}
}

// removeMessage deletes a message with the tasks and polls derived from it.
func (st *state) removeMessage(messageID string) bool {
	_, changed := st.messages[messageID]
	delete(st.messages, messageID)
	for id, t := range st.tasks {
		if t.MessageID != nil && *t.MessageID == messageID {
			delete(st.tasks, id)
			changed = true
		}
	}
	for id, p := range st.polls {
		if p.MessageID == messageID {
			delete(st.polls, id)
			changed = true
		}
	}
	return changed
}
