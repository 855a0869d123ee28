package handler

import (
	"net/http"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/http/dto"
	"basegraph.app/chat/internal/http/middleware"
	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	ledger service.LedgerService
}

func NewMessageHandler(ledger service.LedgerService) *MessageHandler {
	return &MessageHandler{ledger: ledger}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// an authenticated caller may only send as themselves
	if authUser, ok := middleware.UserID(c); ok {
		if req.SenderID != "" && req.SenderID != authUser {
			c.JSON(http.StatusForbidden, gin.H{"error": "sender_id does not match token"})
			return
		}
		req.SenderID = authUser
	}

	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		UserID:    logger.Ptr(req.SenderID),
		ProjectID: req.ProjectID,
	})
	msg, err := h.ledger.Send(ctx, req.ToParams())
	if err != nil {
		respondError(c, err, "send message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) List(c *gin.Context) {
	var q dto.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	msgs, err := h.ledger.Query(c.Request.Context(), q.SenderID, q.ReceiverID, q.ProjectID)
	if err != nil {
		respondError(c, err, "list messages")
		return
	}

	c.JSON(http.StatusOK, dto.MessageListResponse{Messages: msgs})
}

func (h *MessageHandler) Edit(c *gin.Context) {
	var req dto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{MessageID: &id})
	msg, err := h.ledger.Edit(ctx, id, req.Content)
	if err != nil {
		respondError(c, err, "edit message")
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{MessageID: &id})
	if err := h.ledger.Delete(ctx, id); err != nil {
		respondError(c, err, "delete message")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) ToggleStatus(c *gin.Context) {
	var req dto.ToggleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{MessageID: &id})
	msg, err := h.ledger.ToggleStatus(ctx, id, req.Field)
	if err != nil {
		respondError(c, err, "toggle message status")
		return
	}

	c.JSON(http.StatusOK, msg)
}
