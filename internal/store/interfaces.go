package store

import (
	"context"
	"errors"

	"basegraph.app/chat/internal/model"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an entity with the same key already exists.
	ErrConflict = errors.New("already exists")
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateStatus(ctx context.Context, id string, status model.UserStatus) (*model.User, error)
}

type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type ProjectStore interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
}

// MessageStore persists ledger messages. Updates are atomic per record and
// bump Version.
type MessageStore interface {
	// Create stores msg and fills Seq. ErrConflict if the id is taken.
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	// ListConversation returns messages between a and b in either direction
	// plus broadcasts, ordered by timestamp then Seq.
	ListConversation(ctx context.Context, a, b string, projectID *string) ([]model.Message, error)
	UpdateContent(ctx context.Context, id, content string) (*model.Message, error)
	ToggleFlag(ctx context.Context, id string, flag model.StatusFlag) (*model.Message, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

type TaskStore interface {
	// Create fails with ErrNotFound when MessageID names a missing message.
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	ToggleComplete(ctx context.Context, id string) (*model.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteByMessage returns the ids of removed tasks.
	DeleteByMessage(ctx context.Context, messageID string) ([]string, error)
}

type PollStore interface {
	// Create fails with ErrNotFound when MessageID names a missing message.
	Create(ctx context.Context, poll *model.Poll) error
	GetByID(ctx context.Context, id string) (*model.Poll, error)
	List(ctx context.Context) ([]model.Poll, error)
	// Vote records userID's single vote in the poll, replacing any earlier one.
	Vote(ctx context.Context, pollID, optionID, userID string) (*model.Poll, error)
	DeleteByMessage(ctx context.Context, messageID string) ([]string, error)
}

// UnreadCounter keeps per-user unread counts.
type UnreadCounter interface {
	Increment(ctx context.Context, userIDs ...string) error
	Reset(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (int64, error)
	All(ctx context.Context) (map[string]int64, error)
}
