package relay

import (
	"encoding/json"

	"basegraph.app/chat/internal/model"
)

// Inbound frame types.
const (
	FrameSendMessage = "send_message"
)

// Frame is the envelope of every WebSocket text frame.
type Frame struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
}

// audience narrows delivery when receiver filtering is enabled.
type audience struct {
	scoped   bool
	sender   string
	receiver string
}

func (a audience) includes(userID string) bool {
	if !a.scoped || a.receiver == model.ReceiverAll {
		return true
	}
	return userID == a.sender || userID == a.receiver
}

func audienceOf(msg *model.Message) audience {
	if msg == nil {
		return audience{}
	}
	return audience{scoped: true, sender: msg.SenderID, receiver: msg.ReceiverID}
}

func audienceOfRaw(raw json.RawMessage) audience {
	var addr struct {
		SenderID   string `json:"sender_id"`
		ReceiverID string `json:"receiver_id"`
	}
	if err := json.Unmarshal(raw, &addr); err != nil || addr.ReceiverID == "" {
		return audience{}
	}
	return audience{scoped: true, sender: addr.SenderID, receiver: addr.ReceiverID}
}
