package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartresume/internal/ai"
	"smartresume/internal/api/middleware"
	"smartresume/internal/enhance"
	"smartresume/internal/session"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// currentSession 取出会话；缺失说明路由没有挂鉴权中间件。
func currentSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
	}
	return sess, ok
}

// writeAIError 把文本生成相关的错误映射为 HTTP 状态码。
func writeAIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ai.ErrMissingCredential):
		Error(c, http.StatusPreconditionRequired, ai.ErrMissingCredential.Error())
	case errors.Is(err, enhance.ErrEntryNotFound):
		NotFound(c, "work entry not found")
	case errors.Is(err, enhance.ErrJobDescriptionRequired), errors.Is(err, enhance.ErrMissingJobDetails):
		BadRequest(c, err.Error())
	default:
		middleware.LoggerFromContext(c).Warn("ai request failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "ai request failed")
	}
}
