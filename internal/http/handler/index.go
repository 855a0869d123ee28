package handler

import (
	"net/http"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/model"
	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
)

// IndexHandler serves the tasks and polls derived from messages.
type IndexHandler struct {
	index service.IndexService
}

func NewIndexHandler(index service.IndexService) *IndexHandler {
	return &IndexHandler{index: index}
}

func (h *IndexHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.index.CreateTaskFromMessage(c.Request.Context(), c.Param("id"), req.ToParams())
	if err != nil {
		respondError(c, err, "create task")
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *IndexHandler) ListTasks(c *gin.Context) {
	var q dto.ListTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	filter, err := model.ParseTaskFilter(q.Filter)
	if err != nil {
		badRequest(c, err)
		return
	}

	tasks, err := h.index.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list tasks")
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{Tasks: tasks})
}

func (h *IndexHandler) ToggleTask(c *gin.Context) {
	task, err := h.index.ToggleTaskComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "toggle task")
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *IndexHandler) DeleteTask(c *gin.Context) {
	if err := h.index.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *IndexHandler) CreatePoll(c *gin.Context) {
	var req dto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if authUser, ok := middleware.UserID(c); ok && req.CreatedBy == "" {
		req.CreatedBy = authUser
	}

	poll, err := h.index.CreatePollFromMessage(c.Request.Context(), c.Param("id"), req.ToParams())
	if err != nil {
		respondError(c, err, "create poll")
		return
	}

	c.JSON(http.StatusCreated, poll)
}

func (h *IndexHandler) ListPolls(c *gin.Context) {
	polls, err := h.index.ListPolls(c.Request.Context())
	if err != nil {
		respondError(c, err, "list polls")
		return
	}

	c.JSON(http.StatusOK, dto.PollListResponse{Polls: polls})
}

func (h *IndexHandler) GetPoll(c *gin.Context) {
	poll, err := h.index.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "get poll")
		return
	}

	c.JSON(http.StatusOK, poll)
}

func (h *IndexHandler) Vote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if authUser, ok := middleware.UserID(c); ok {
		req.UserID = authUser
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	poll, err := h.index.Vote(c.Request.Context(), c.Param("id"), req.OptionID, req.UserID)
	if err != nil {
		respondError(c, err, "vote")
		return
	}

	c.JSON(http.StatusOK, poll)
}
