package client

import (
	"sort"

	"basegraph.app/chat/internal/model"
)

// Selection is the open conversation and project filter. It only shapes
// views and is never sent to the server.
type Selection struct {
	PartnerID string
	ProjectID *string
}

// Conversation returns the messages visible in the open conversation:
// those between the current user and the selected partner in either
// direction plus broadcasts, narrowed by the project filter.
func (s *Store) Conversation() []model.Message {
	var out []model.Message
	_ = s.exec(func(st *state) bool {
		for _, msg := range st.messages {
			if st.visible(msg) {
				out = append(out, *msg)
			}
		}
		return false
	})
	sortMessages(out)
	return out
}

func (st *state) visible(msg *model.Message) bool {
	if !msg.InProject(st.project) {
		return false
	}
	if msg.IsBroadcast() {
		return true
	}
	return st.partner != "" && msg.Involves(st.me, st.partner)
}

// Messages returns every mirrored message in timeline order.
func (s *Store) Messages() []model.Message {
	var out []model.Message
	_ = s.exec(func(st *state) bool {
		for _, msg := range st.messages {
			out = append(out, *msg)
		}
		return false
	})
	sortMessages(out)
	return out
}

func (s *Store) Message(id string) (model.Message, bool) {
	var (
		out   model.Message
		found bool
	)
	_ = s.exec(func(st *state) bool {
		if msg, ok := st.messages[id]; ok {
			out, found = *msg, true
		}
		return false
	})
	return out, found
}

func (s *Store) Tasks(filter model.TaskFilter) []model.Task {
	var out []model.Task
	_ = s.exec(func(st *state) bool {
		for _, t := range st.tasks {
			if filter.Match(t) {
				out = append(out, *t.Clone())
			}
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Polls() []model.Poll {
	var out []model.Poll
	_ = s.exec(func(st *state) bool {
		for _, p := range st.polls {
			out = append(out, *p.Clone())
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Poll(id string) (model.Poll, bool) {
	var (
		out   model.Poll
		found bool
	)
	_ = s.exec(func(st *state) bool {
		if p, ok := st.polls[id]; ok {
			out, found = *p.Clone(), true
		}
		return false
	})
	return out, found
}

// Users returns every known user ordered by name.
func (s *Store) Users() []model.User {
	var out []model.User
	_ = s.exec(func(st *state) bool {
		for _, u := range st.users {
			out = append(out, *u)
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) User(id string) (model.User, bool) {
	var (
		out   model.User
		found bool
	)
	_ = s.exec(func(st *state) bool {
		if u, ok := st.users[id]; ok {
			out, found = *u, true
		}
		return false
	})
	return out, found
}

func (s *Store) Projects() []model.Project {
	var out []model.Project
	_ = s.exec(func(st *state) bool {
		out = append(out, st.projects...)
		return false
	})
	return out
}

// Pending lists unconfirmed mutations, oldest first.
func (s *Store) Pending() []Pending {
	var out []Pending
	_ = s.exec(func(st *state) bool {
		for _, p := range st.pending {
			out = append(out, p.Pending)
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out
}

func (s *Store) Selection() Selection {
	var out Selection
	_ = s.exec(func(st *state) bool {
		out = Selection{PartnerID: st.partner, ProjectID: st.project}
		return false
	})
	return out
}

func sortMessages(msgs []model.Message) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Less(&msgs[j]) })
}
