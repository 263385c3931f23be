// Package notify 通过 Redis Pub/Sub 向会话推送消息，WebSocket 处理器负责转发给浏览器。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"smartresume/internal/store"
)

const channelPrefix = "resume_notify:"

// 消息类型。
const (
	TypeDocumentChanged = "document_changed"
	TypeExportStatus    = "export_status"
)

// 导出状态。
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusError     = "error"
)

// Channel 返回会话对应的频道名。
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// DocumentChangedMessage 在文档变更后推送。
type DocumentChangedMessage struct {
	Type         string `json:"type"`
	Op           string `json:"op"`
	Section      string `json:"section,omitempty"`
	EntryID      string `json:"entry_id,omitempty"`
	LastModified string `json:"last_modified"`
}

// ExportStatusMessage 描述 PDF 导出任务的进度，字段名与前端解析保持一致。
type ExportStatusMessage struct {
	Type          string `json:"type"`
	Status        string `json:"status"`
	ExportID      string `json:"export_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher 把消息编码为 JSON 发布到会话频道。
type Publisher struct {
	client  redisPublisher
	logger  *slog.Logger
	timeout time.Duration
}

func NewPublisher(client redisPublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, logger: logger, timeout: 3 * time.Second}
}

// Publish 发布任意可 JSON 编码的消息。
func (p *Publisher) Publish(ctx context.Context, sessionID string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(sessionID), payload).Err(); err != nil {
		return fmt.Errorf("publish notify message: %w", err)
	}
	return nil
}

// ExportStatus 推送导出状态。
func (p *Publisher) ExportStatus(ctx context.Context, sessionID string, msg ExportStatusMessage) error {
	msg.Type = TypeExportStatus
	return p.Publish(ctx, sessionID, msg)
}

// DocumentChanged 适配 session.WithChangeHook。发布失败只记录日志，不影响变更本身。
func (p *Publisher) DocumentChanged(sessionID string, change store.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	msg := DocumentChangedMessage{
		Type:         TypeDocumentChanged,
		Op:           string(change.Op),
		Section:      string(change.Section),
		EntryID:      change.EntryID,
		LastModified: change.LastModified,
	}
	if err := p.Publish(ctx, sessionID, msg); err != nil {
		p.logger.Warn("publish document change failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
}
