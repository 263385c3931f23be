package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateCounter 是固定窗口计数所需的 Redis 命令。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client RateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// AIRateLimitMiddleware 限制每个会话每分钟的文本生成请求数。limit<=0 时不限制；
// Redis 不可用时放行，只记录日志。必须挂在 SessionMiddleware 之后。
func AIRateLimitMiddleware(client RateCounter, limit int, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		if limit <= 0 || client == nil {
			c.Next()
			return
		}
		sess, ok := SessionFromContext(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		window := now().Unix() / 60
		key := fmt.Sprintf("ai_rate:%s:%d", sess.ID, window)
		count, err := incrWithTTL(c.Request.Context(), client, key, 2*time.Minute)
		if err != nil {
			LoggerFromContext(c).Warn("ai rate counter unavailable", slog.Any("error", err))
			c.Next()
			return
		}
		if count > int64(limit) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many ai requests"})
			return
		}
		c.Next()
	}
}
