package model

import "fmt"

type MessageKind string

const (
	MessageKindText       MessageKind = "text"
	MessageKindFile       MessageKind = "file"
	MessageKindScreenshot MessageKind = "screenshot"
	MessageKindVoice      MessageKind = "voice"
	MessageKindTask       MessageKind = "task"
	MessageKindPoll       MessageKind = "poll"
)

// Body is the kind-specific part of a Message. The set of implementations
// is closed.
type Body interface {
	Kind() MessageKind
	isBody()
}

type Attachment struct {
	URL      string
	FileName string
}

type TextBody struct{}

type FileBody struct{ Attachment }

type ScreenshotBody struct{ Attachment }

type VoiceBody struct{ Attachment }

// TaskBody points at the Task a "task" message carries. TaskID may be empty.
type TaskBody struct{ TaskID string }

// PollBody points at the Poll a "poll" message carries. PollID may be empty.
type PollBody struct{ PollID string }

func (TextBody) Kind() MessageKind       { return MessageKindText }
func (FileBody) Kind() MessageKind       { return MessageKindFile }
func (ScreenshotBody) Kind() MessageKind { return MessageKindScreenshot }
func (VoiceBody) Kind() MessageKind      { return MessageKindVoice }
func (TaskBody) Kind() MessageKind       { return MessageKindTask }
func (PollBody) Kind() MessageKind       { return MessageKindPoll }

func (TextBody) isBody()       {}
func (FileBody) isBody()       {}
func (ScreenshotBody) isBody() {}
func (VoiceBody) isBody()      {}
func (TaskBody) isBody()       {}
func (PollBody) isBody()       {}

// NewBody builds the variant for kind. Attachment kinds require a URL.
// An empty kind means text.
func NewBody(kind MessageKind, att Attachment, refID string) (Body, error) {
	switch kind {
	case "", MessageKindText:
		return TextBody{}, nil
	case MessageKindFile, MessageKindScreenshot, MessageKindVoice:
		if att.URL == "" {
			return nil, fmt.Errorf("%s message requires a file url", kind)
		}
		switch kind {
		case MessageKindFile:
			return FileBody{att}, nil
		case MessageKindScreenshot:
			return ScreenshotBody{att}, nil
		default:
			return VoiceBody{att}, nil
		}
	case MessageKindTask:
		return TaskBody{TaskID: refID}, nil
	case MessageKindPoll:
		return PollBody{PollID: refID}, nil
	default:
		return nil, fmt.Errorf("unknown message kind %q", kind)
	}
}

// AttachmentOf returns the attachment carried by b, if any.
func AttachmentOf(b Body) (Attachment, bool) {
	switch v := b.(type) {
	case FileBody:
		return v.Attachment, true
	case ScreenshotBody:
		return v.Attachment, true
	case VoiceBody:
		return v.Attachment, true
	default:
		return Attachment{}, false
	}
}

// RefOf returns the task or poll id carried by b, or "".
func RefOf(b Body) string {
	switch v := b.(type) {
	case TaskBody:
		return v.TaskID
	case PollBody:
		return v.PollID
	default:
		return ""
	}
}
