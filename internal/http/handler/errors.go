package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"basegraph.app/chat/internal/service"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto status codes. Unclassified errors
// are logged and reported as a generic failure of op.
func respondError(c *gin.Context, err error, op string) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(ctx, "request failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
	}
}

func badRequest(c *gin.Context, err error) {
	slog.WarnContext(c.Request.Context(), "invalid request", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
