package dto

import (
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type SendMessageRequest struct {
	ID         string            `json:"id,omitempty" binding:"omitempty,max=64"`
	SenderID   string            `json:"sender_id" binding:"max=64"`
	ReceiverID string            `json:"receiver_id" binding:"required,max=64"`
	Content    string            `json:"content" binding:"max=10000"`
	Type       model.MessageKind `json:"type,omitempty" binding:"omitempty,oneof=text file screenshot voice task poll"`
	FileURL    string            `json:"file_url,omitempty" binding:"omitempty,url,max=2048"`
	FileName   string            `json:"file_name,omitempty" binding:"max=255"`
	TaskID     string            `json:"task_id,omitempty" binding:"max=64"`
	PollID     string            `json:"poll_id,omitempty" binding:"max=64"`
	ProjectID  *string           `json:"project_id,omitempty" binding:"omitempty,max=64"`
	ReplyTo    *string           `json:"reply_to,omitempty" binding:"omitempty,max=64"`
}

func (r SendMessageRequest) ToParams() service.SendParams {
	ref := r.TaskID
	if r.Type == model.MessageKindPoll {
		ref = r.PollID
	}
	return service.SendParams{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		Kind:       r.Type,
		Attachment: model.Attachment{URL: r.FileURL, FileName: r.FileName},
		RefID:      ref,
		ProjectID:  r.ProjectID,
		ReplyTo:    r.ReplyTo,
	}
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"max=10000"`
}

type ToggleStatusRequest struct {
	Field model.StatusFlag `json:"field" binding:"required,oneof=read done"`
}

type ListMessagesQuery struct {
	SenderID   string  `form:"sender_id" binding:"required"`
	ReceiverID string  `form:"receiver_id" binding:"required"`
	ProjectID  *string `form:"project_id"`
}

type MessageListResponse struct {
	Messages []model.Message `json:"messages"`
}
