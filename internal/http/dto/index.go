package dto

import (
	"time"

	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
)

type CreateTaskRequest struct {
	AssignedTo []string   `json:"assigned_to" binding:"max=50,dive,max=64"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	ProjectID  *string    `json:"project_id,omitempty" binding:"omitempty,max=64"`
}

func (r CreateTaskRequest) ToParams() service.TaskParams {
	return service.TaskParams{AssignedTo: r.AssignedTo, DueAt: r.DueAt, ProjectID: r.ProjectID}
}

type CreatePollRequest struct {
	Question  string     `json:"question" binding:"required,max=500"`
	Options   []string   `json:"options" binding:"required,min=2,max=20,dive,max=200"`
	CreatedBy string     `json:"created_by" binding:"max=64"`
	EndAt     *time.Time `json:"end_at,omitempty"`
}

func (r CreatePollRequest) ToParams() service.PollParams {
	return service.PollParams{Question: r.Question, Options: r.Options, CreatedBy: r.CreatedBy, EndAt: r.EndAt}
}

type VoteRequest struct {
	OptionID string `json:"option_id" binding:"required,max=64"`
	UserID   string `json:"user_id" binding:"max=64"`
}

type ListTasksQuery struct {
	Filter string `form:"filter" binding:"omitempty,oneof=all active completed"`
}

type TaskListResponse struct {
	Tasks []model.Task `json:"tasks"`
}

type PollListResponse struct {
	Polls []model.Poll `json:"polls"`
}
