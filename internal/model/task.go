package model

import (
	"fmt"
	"time"
)

type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Completed  bool       `json:"completed"`
	AssignedTo []string   `json:"assigned_to"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	ProjectID  *string    `json:"project_id,omitempty"`
	MessageID  *string    `json:"message_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type TaskFilter string

const (
	TaskFilterAll       TaskFilter = "all"
	TaskFilterActive    TaskFilter = "active"
	TaskFilterCompleted TaskFilter = "completed"
)

// ParseTaskFilter maps "" to TaskFilterAll.
func ParseTaskFilter(s string) (TaskFilter, error) {
	switch f := TaskFilter(s); f {
	case "":
		return TaskFilterAll, nil
	case TaskFilterAll, TaskFilterActive, TaskFilterCompleted:
		return f, nil
	default:
		return "", fmt.Errorf("unknown task filter %q", s)
	}
}

func (f TaskFilter) Match(t *Task) bool {
	switch f {
	case TaskFilterActive:
		return !t.Completed
	case TaskFilterCompleted:
		return t.Completed
	default:
		return true
	}
}

type Poll struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	CreatedBy string       `json:"created_by"`
	EndAt     *time.Time   `json:"end_at,omitempty"`
	MessageID string       `json:"message_id"`
	CreatedAt time.Time    `json:"created_at"`
}

type PollOption struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Votes []string `json:"votes"`
}

func (p *Poll) Option(optionID string) (*PollOption, bool) {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i], true
		}
	}
	return nil, false
}

func (p *Poll) Closed(now time.Time) bool {
	return p.EndAt != nil && !now.Before(*p.EndAt)
}

// ApplyVote moves userID's vote to optionID. It returns false when the
// option does not belong to the poll.
func (p *Poll) ApplyVote(optionID, userID string) bool {
	if _, ok := p.Option(optionID); !ok {
		return false
	}
	for i := range p.Options {
		opt := &p.Options[i]
		votes := make([]string, 0, len(opt.Votes)+1)
		for _, v := range opt.Votes {
			if v != userID {
				votes = append(votes, v)
			}
		}
		if opt.ID == optionID {
			votes = append(votes, userID)
		}
		opt.Votes = votes
	}
	return true
}

// VoteOf returns the option userID voted for.
func (p *Poll) VoteOf(userID string) (string, bool) {
	for _, opt := range p.Options {
		for _, v := range opt.Votes {
			if v == userID {
				return opt.ID, true
			}
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = make([]PollOption, len(p.Options))
	for i, opt := range p.Options {
		c.Options[i] = PollOption{ID: opt.ID, Text: opt.Text, Votes: append([]string(nil), opt.Votes...)}
	}
	return &c
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	c := *t
	c.AssignedTo = append([]string(nil), t.AssignedTo...)
	return &c
}
