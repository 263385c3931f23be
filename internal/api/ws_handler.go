package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"smartresume/internal/auth"
	"smartresume/internal/metrics"
	"smartresume/internal/notify"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// Subscriber 由 redis.Client 实现。
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// SessionTokenValidator 校验 WebSocket 握手后发送的令牌。
type SessionTokenValidator interface {
	Validate(token string) (*auth.SessionClaims, error)
}

// WsHandler 在首条消息完成鉴权后，转发会话频道上的通知。
type WsHandler struct {
	subscriber     Subscriber
	tokens         SessionTokenValidator
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(subscriber Subscriber, tokens SessionTokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		subscriber:     subscriber,
		tokens:         tokens,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(h.allowedOrigins, r)
		},
	}
	return h
}

// originAllowed 未配置白名单时只允许同源。
func originAllowed(allowed []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowed) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接，读取首条 auth 消息，然后把会话频道上的消息原样转发给客户端。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	if h.subscriber == nil {
		Error(c, http.StatusServiceUnavailable, "notifications unavailable")
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	defer metrics.TrackWebSocket()()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	sessionID, closeCode, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		writeClose(conn, closeCode, "unauthorized")
		return
	}
	log = log.With(slog.String("session_id", sessionID))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go discardIncoming(conn, cancel)

	if err := h.forward(ctx, conn, sessionID, log); err != nil {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

// authenticate 在 wsAuthTimeout 内等待 {"type":"auth","token":...}。
func (h *WsHandler) authenticate(conn *websocket.Conn) (string, int, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg wsAuthMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return "", websocket.ClosePolicyViolation, fmt.Errorf("read auth message: %w", err)
	}
	if msg.Type != "auth" || strings.TrimSpace(msg.Token) == "" {
		return "", websocket.ClosePolicyViolation, errors.New("auth message required")
	}
	claims, err := h.tokens.Validate(msg.Token)
	if err != nil {
		return "", websocket.ClosePolicyViolation, fmt.Errorf("validate token: %w", err)
	}
	return claims.SessionID, websocket.CloseNormalClosure, nil
}

// discardIncoming 读取并丢弃客户端消息，连接断开时取消 ctx。
func discardIncoming(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, sessionID string, log *slog.Logger) error {
	channel := notify.Channel(sessionID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()
	log.Debug("subscribed to notifications", slog.String("channel", channel))

	messages := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("notification channel closed")
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
