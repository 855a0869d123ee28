package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"basegraph.app/chat/internal/model"
)

// MemoryStores keeps every entity in process. It backs DATABASE_URL=memory://
// and the service tests. Writes inside WithTx are isolated and roll back on
// error.
type MemoryStores struct {
	mu    *sync.Mutex // nil for the view handed to a WithTx callback
	state *memoryState
	now   func() time.Time
}

type memoryState struct {
	users    map[string]model.User
	accounts map[string]model.Account // keyed by lower-cased email
	projects map[string]model.Project
	messages map[string]model.Message
	tasks    map[string]model.Task
	polls    map[string]*model.Poll
	seq      int64
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		mu: &sync.Mutex{},
		state: &memoryState{
			users:    make(map[string]model.User),
			accounts: make(map[string]model.Account),
			projects: make(map[string]model.Project),
			messages: make(map[string]model.Message),
			tasks:    make(map[string]model.Task),
			polls:    make(map[string]*model.Poll),
		},
		now: time.Now,
	}
}

func (m *MemoryStores) Users() UserStore       { return memUsers{m} }
func (m *MemoryStores) Accounts() AccountStore { return memAccounts{m} }
func (m *MemoryStores) Projects() ProjectStore { return memProjects{m} }
func (m *MemoryStores) Messages() MessageStore { return memMessages{m} }
func (m *MemoryStores) Tasks() TaskStore       { return memTasks{m} }
func (m *MemoryStores) Polls() PollStore       { return memPolls{m} }

// WithTx runs fn with exclusive access to the state. The view passed to fn
// must not escape it.
func (m *MemoryStores) WithTx(ctx context.Context, fn func(tx *MemoryStores) error) error {
	if m.mu == nil {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	tx := &MemoryStores{state: m.state, now: m.now}
	if err := fn(tx); err != nil {
		*m.state = *snapshot
		return err
	}
	return nil
}

func (m *MemoryStores) lock() func() {
	if m.mu == nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		users:    make(map[string]model.User, len(s.users)),
		accounts: make(map[string]model.Account, len(s.accounts)),
		projects: make(map[string]model.Project, len(s.projects)),
		messages: make(map[string]model.Message, len(s.messages)),
		tasks:    make(map[string]model.Task, len(s.tasks)),
		polls:    make(map[string]*model.Poll, len(s.polls)),
		seq:      s.seq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = *v.Clone()
	}
	for k, v := range s.polls {
		c.polls[k] = v.Clone()
	}
	return c
}

type memUsers struct{ m *MemoryStores }

func (s memUsers) Create(_ context.Context, user *model.User) error {
	defer s.m.lock()()
	if _, ok := s.m.state.users[user.ID]; ok {
		return ErrConflict
	}
	now := s.m.now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.m.state.users[user.ID] = *user
	return nil
}

func (s memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	defer s.m.lock()()
	u, ok := s.m.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s memUsers) List(_ context.Context) ([]model.User, error) {
	defer s.m.lock()()
	users := make([]model.User, 0, len(s.m.state.users))
	for _, u := range s.m.state.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s memUsers) UpdateStatus(_ context.Context, id string, status model.UserStatus) (*model.User, error) {
	defer s.m.lock()()
	u, ok := s.m.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = s.m.now()
	s.m.state.users[id] = u
	return &u, nil
}

type memAccounts struct{ m *MemoryStores }

func (s memAccounts) Create(_ context.Context, account *model.Account) error {
	defer s.m.lock()()
	key := strings.ToLower(account.Email)
	if _, ok := s.m.state.accounts[key]; ok {
		return ErrConflict
	}
	if _, ok := s.m.state.users[account.UserID]; !ok {
		return ErrNotFound
	}
	account.Email = key
	account.CreatedAt = s.m.now()
	s.m.state.accounts[key] = *account
	return nil
}

func (s memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	defer s.m.lock()()
	a, ok := s.m.state.accounts[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

type memProjects struct{ m *MemoryStores }

func (s memProjects) Create(_ context.Context, p *model.Project) error {
	defer s.m.lock()()
	if _, ok := s.m.state.projects[p.ID]; ok {
		return ErrConflict
	}
	s.m.state.projects[p.ID] = *p
	return nil
}

func (s memProjects) GetByID(_ context.Context, id string) (*model.Project, error) {
	defer s.m.lock()()
	p, ok := s.m.state.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s memProjects) List(_ context.Context) ([]model.Project, error) {
	defer s.m.lock()()
	projects := make([]model.Project, 0, len(s.m.state.projects))
	for _, p := range s.m.state.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name != projects[j].Name {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

type memMessages struct{ m *MemoryStores }

func (s memMessages) Create(_ context.Context, msg *model.Message) error {
	defer s.m.lock()()
	if _, ok := s.m.state.messages[msg.ID]; ok {
		return ErrConflict
	}
	s.m.state.seq++
	msg.Seq = s.m.state.seq
	s.m.state.messages[msg.ID] = *msg
	return nil
}

func (s memMessages) GetByID(_ context.Context, id string) (*model.Message, error) {
	defer s.m.lock()()
	msg, ok := s.m.state.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &msg, nil
}

func (s memMessages) ListConversation(_ context.Context, a, b string, projectID *string) ([]model.Message, error) {
	defer s.m.lock()()
	var out []model.Message
	for _, msg := range s.m.state.messages {
		if msg.Involves(a, b) && msg.InProject(projectID) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(&out[j]) })
	return out, nil
}

func (s memMessages) UpdateContent(_ context.Context, id, content string) (*model.Message, error) {
	return s.update(id, func(msg *model.Message) {
		msg.Content = content
		msg.IsEdited = true
	})
}

func (s memMessages) ToggleFlag(_ context.Context, id string, flag model.StatusFlag) (*model.Message, error) {
	switch flag {
	case model.StatusFlagRead:
		return s.update(id, func(msg *model.Message) { msg.IsRead = !msg.IsRead })
	case model.StatusFlagDone:
		return s.update(id, func(msg *model.Message) { msg.IsDone = !msg.IsDone })
	default:
		return nil, fmt.Errorf("unknown status flag %q", flag)
	}
}

func (s memMessages) update(id string, apply func(*model.Message)) (*model.Message, error) {
	defer s.m.lock()()
	msg, ok := s.m.state.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	apply(&msg)
	msg.Version++
	s.m.state.messages[id] = msg
	return &msg, nil
}

func (s memMessages) Delete(_ context.Context, id string) (bool, error) {
	defer s.m.lock()()
	if _, ok := s.m.state.messages[id]; !ok {
		return false, nil
	}
	delete(s.m.state.messages, id)
	// mirror ON DELETE CASCADE
	for tid, t := range s.m.state.tasks {
		if t.MessageID != nil && *t.MessageID == id {
			delete(s.m.state.tasks, tid)
		}
	}
	for pid, p := range s.m.state.polls {
		if p.MessageID == id {
			delete(s.m.state.polls, pid)
		}
	}
	return true, nil
}

type memTasks struct{ m *MemoryStores }

func (s memTasks) Create(_ context.Context, t *model.Task) error {
	defer s.m.lock()()
	if _, ok := s.m.state.tasks[t.ID]; ok {
		return ErrConflict
	}
	if t.MessageID != nil {
		if _, ok := s.m.state.messages[*t.MessageID]; !ok {
			return ErrNotFound
		}
	}
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
	t.CreatedAt = s.m.now()
	s.m.state.tasks[t.ID] = *t.Clone()
	return nil
}

func (s memTasks) GetByID(_ context.Context, id string) (*model.Task, error) {
	defer s.m.lock()()
	t, ok := s.m.state.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s memTasks) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	defer s.m.lock()()
	var out []model.Task
	for _, t := range s.m.state.tasks {
		if filter.Match(&t) {
			out = append(out, *t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s memTasks) ToggleComplete(_ context.Context, id string) (*model.Task, error) {
	defer s.m.lock()()
	t, ok := s.m.state.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Completed = !t.Completed
	s.m.state.tasks[id] = t
	return t.Clone(), nil
}

func (s memTasks) Delete(_ context.Context, id string) (bool, error) {
	defer s.m.lock()()
	if _, ok := s.m.state.tasks[id]; !ok {
		return false, nil
	}
	delete(s.m.state.tasks, id)
	return true, nil
}

func (s memTasks) DeleteByMessage(_ context.Context, messageID string) ([]string, error) {
	defer s.m.lock()()
	var ids []string
	for id, t := range s.m.state.tasks {
		if t.MessageID != nil && *t.MessageID == messageID {
			ids = append(ids, id)
			delete(s.m.state.tasks, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memPolls struct{ m *MemoryStores }

func (s memPolls) Create(_ context.Context, p *model.Poll) error {
	defer s.m.lock()()
	if _, ok := s.m.state.polls[p.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.m.state.messages[p.MessageID]; !ok {
		return ErrNotFound
	}
	for i := range p.Options {
		if p.Options[i].Votes == nil {
			p.Options[i].Votes = []string{}
		}
	}
	p.CreatedAt = s.m.now()
	s.m.state.polls[p.ID] = p.Clone()
	return nil
}

func (s memPolls) GetByID(_ context.Context, id string) (*model.Poll, error) {
	defer s.m.lock()()
	p, ok := s.m.state.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s memPolls) List(_ context.Context) ([]model.Poll, error) {
	defer s.m.lock()()
	out := make([]model.Poll, 0, len(s.m.state.polls))
	for _, p := range s.m.state.polls {
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s memPolls) Vote(_ context.Context, pollID, optionID, userID string) (*model.Poll, error) {
	defer s.m.lock()()
	p, ok := s.m.state.polls[pollID]
	if !ok {
		return nil, ErrNotFound
	}
	if !p.ApplyVote(optionID, userID) {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s memPolls) DeleteByMessage(_ context.Context, messageID string) ([]string, error) {
	defer s.m.lock()()
	var ids []string
	for id, p := range s.m.state.polls {
		if p.MessageID == messageID {
			ids = append(ids, id)
			delete(s.m.state.polls, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
