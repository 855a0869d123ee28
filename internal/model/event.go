package model

import "time"

type EventType string

const (
	EventMessageCreated EventType = "receive_message"
	EventMessageEdited  EventType = "message_edited"
	EventMessageDeleted EventType = "message_deleted"
	EventMessageStatus  EventType = "message_status"
	EventUserStatus     EventType = "user_status"
	EventTaskCreated    EventType = "task_created"
	EventTaskUpdated    EventType = "task_updated"
	EventTaskDeleted    EventType = "task_deleted"
	EventPollCreated    EventType = "poll_created"
	EventPollVoted      EventType = "poll_voted"
)

// Event is what the relay pushes to connected sessions after a state change.
type Event struct {
	Type      EventType `json:"type"`
	Message   *Message  `json:"message,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	User      *User     `json:"user,omitempty"`
	Task      *Task     `json:"task,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Poll      *Poll     `json:"poll,omitempty"`
	At        time.Time `json:"at"`
}
