package model

import (
	"encoding/json"
	"time"
)

// ReceiverAll addresses a message to every user.
const ReceiverAll = "all"

type StatusFlag string

const (
	StatusFlagRead StatusFlag = "read"
	StatusFlagDone StatusFlag = "done"
)

type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	Body       Body
	ProjectID  *string
	ReplyTo    *string
	IsRead     bool
	IsDone     bool
	IsEdited   bool
	// Version starts at 1 and grows by one on every edit or status toggle.
	Version int64
	// Seq is the storage insertion order; it breaks Timestamp ties.
	Seq       int64
	Timestamp time.Time
}

func (m *Message) Kind() MessageKind {
	if m.Body == nil {
		return MessageKindText
	}
	return m.Body.Kind()
}

func (m *Message) IsBroadcast() bool {
	return m.ReceiverID == ReceiverAll
}

// Involves reports whether the message belongs to the conversation between
// a and b, in either direction, or is addressed to everyone.
func (m *Message) Involves(a, b string) bool {
	if m.IsBroadcast() {
		return true
	}
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// InProject reports whether the message passes an optional project filter.
func (m *Message) InProject(projectID *string) bool {
	if projectID == nil {
		return true
	}
	return m.ProjectID != nil && *m.ProjectID == *projectID
}

// Less orders messages by timestamp, then insertion order.
func (m *Message) Less(o *Message) bool {
	if !m.Timestamp.Equal(o.Timestamp) {
		return m.Timestamp.Before(o.Timestamp)
	}
	return m.Seq < o.Seq
}

type messageJSON struct {
	ID         string      `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Content    string      `json:"content"`
	Type       MessageKind `json:"type"`
	FileURL    string      `json:"file_url,omitempty"`
	FileName   string      `json:"file_name,omitempty"`
	TaskID     string      `json:"task_id,omitempty"`
	PollID     string      `json:"poll_id,omitempty"`
	ProjectID  *string     `json:"project_id,omitempty"`
	ReplyTo    *string     `json:"reply_to,omitempty"`
	IsRead     bool        `json:"is_read"`
	IsDone     bool        `json:"is_done"`
	IsEdited   bool        `json:"is_edited"`
	Version    int64       `json:"version"`
	Seq        int64       `json:"seq,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// MarshalJSON writes the body variant as flat type/file_url/file_name/task_id/poll_id fields.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Type:       m.Kind(),
		ProjectID:  m.ProjectID,
		ReplyTo:    m.ReplyTo,
		IsRead:     m.IsRead,
		IsDone:     m.IsDone,
		IsEdited:   m.IsEdited,
		Version:    m.Version,
		Seq:        m.Seq,
		Timestamp:  m.Timestamp,
	}
	if att, ok := AttachmentOf(m.Body); ok {
		out.FileURL = att.URL
		out.FileName = att.FileName
	}
	switch v := m.Body.(type) {
	case TaskBody:
		out.TaskID = v.TaskID
	case PollBody:
		out.PollID = v.PollID
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	ref := in.TaskID
	if in.Type == MessageKindPoll {
		ref = in.PollID
	}
	body, err := NewBody(in.Type, Attachment{URL: in.FileURL, FileName: in.FileName}, ref)
	if err != nil {
		return err
	}
	*m = Message{
		ID:         in.ID,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Body:       body,
		ProjectID:  in.ProjectID,
		ReplyTo:    in.ReplyTo,
		IsRead:     in.IsRead,
		IsDone:     in.IsDone,
		IsEdited:   in.IsEdited,
		Version:    in.Version,
		Seq:        in.Seq,
		Timestamp:  in.Timestamp,
	}
	return nil
}
