package handler

import (
	"net/http"

	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	presence  service.PresenceService
	directory service.DirectoryService
}

func NewUserHandler(presence service.PresenceService, directory service.DirectoryService) *UserHandler {
	return &UserHandler{presence: presence, directory: directory}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.presence.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "list users")
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{Users: users})
}

func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if !h.allowed(c, id) {
		return
	}

	user, err := h.presence.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "update status")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ResetUnread(c *gin.Context) {
	id := c.Param("id")
	if !h.allowed(c, id) {
		return
	}

	if err := h.presence.ResetUnread(c.Request.Context(), id); err != nil {
		respondError(c, err, "reset unread")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.directory.CreateUser(c.Request.Context(), req.ToParams())
	if err != nil {
		respondError(c, err, "create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// allowed stops an authenticated user from acting on someone else.
func (h *UserHandler) allowed(c *gin.Context, targetID string) bool {
	if authUser, ok := middleware.UserID(c); ok && authUser != targetID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot modify another user"})
		return false
	}
	return true
}
