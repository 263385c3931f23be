package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smartresume/internal/api/middleware"
	"smartresume/internal/auth"
)

// TokenService 签发与校验会话令牌，由 auth.TokenService 实现。
type TokenService interface {
	Issue(sessionID string) (string, time.Time, error)
	Validate(token string) (*auth.SessionClaims, error)
}

// SessionHandler 创建匿名编辑会话。
type SessionHandler struct {
	sessions SessionProvider
	tokens   TokenService
}

func NewSessionHandler(sessions SessionProvider, tokens TokenService) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens}
}

type sessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Create 新建会话并返回访问令牌。
func (h *SessionHandler) Create(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	sess, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		log.Error("create session failed", slog.Any("error", err))
		Internal(c, "failed to create session")
		return
	}

	token, expiresAt, err := h.tokens.Issue(sess.ID)
	if err != nil {
		log.Error("issue session token failed", slog.Any("error", err))
		Internal(c, "failed to issue token")
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{Token: token, SessionID: sess.ID, ExpiresAt: expiresAt})
}
