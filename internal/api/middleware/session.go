package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartresume/internal/auth"
	"smartresume/internal/session"
)

const sessionKey = "session"

// TokenValidator 校验会话令牌。
type TokenValidator interface {
	Validate(token string) (*auth.SessionClaims, error)
}

// SessionLoader 按 ID 取回会话。
type SessionLoader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// SessionMiddleware 校验 Bearer 令牌，并把对应的会话注入上下文。
func SessionMiddleware(tokens TokenValidator, sessions SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			abortUnauthorized(c)
			return
		}

		sess, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				abortUnauthorized(c)
				return
			}
			LoggerFromContext(c).Error("load session failed", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}

		c.Set(sessionKey, sess)
		WithLogAttrs(c, slog.String("session_id", sess.ID))
		c.Next()
	}
}

// SessionFromContext 返回当前请求的会话。
func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok && sess != nil
}
