package relay

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

type HandlerConfig struct {
	// RequireAuth rejects handshakes without a valid token.
	RequireAuth    bool
	AllowedOrigins []string
}

type Handler struct {
	hub      *Hub
	tokens   TokenValidator
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, tokens TokenValidator, cfg HandlerConfig) *Handler {
	h := &Handler{hub: hub, tokens: tokens, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

// ServeWS upgrades the request and serves the session until it disconnects.
// The user is taken from the token when present, else from ?user_id=.
func (h *Handler) ServeWS(c *gin.Context) {
	userID := c.Query("user_id")

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token != "" && h.tokens != nil {
		sub, err := h.tokens.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = sub
	} else if h.cfg.RequireAuth {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	newSession(h.hub, conn, userID).run(c.Request.Context())
}
