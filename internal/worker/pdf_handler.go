// Package worker 消费 asynq 队列中的导出任务。
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"

	"smartresume/internal/database"
	"smartresume/internal/errcode"
	"smartresume/internal/metrics"
	"smartresume/internal/notify"
	"smartresume/internal/render"
	"smartresume/internal/storage"
	"smartresume/internal/tasks"
)

// Printer 把 HTML 打印为 PDF。
type Printer interface {
	GeneratePDF(ctx context.Context, html string) ([]byte, error)
}

// Uploader 保存生成的文件。
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// ExportRecorder 更新导出记录的状态。记录不存在时返回 database.ErrExportNotFound。
type ExportRecorder interface {
	MarkCompleted(ctx context.Context, id, objectKey string) error
	MarkFailed(ctx context.Context, id string, code int, message string) error
}

// StatusPublisher 向会话推送导出进度。
type StatusPublisher interface {
	ExportStatus(ctx context.Context, sessionID string, msg notify.ExportStatusMessage) error
}

// stageError 记录失败发生的阶段，用于选择错误码。
type stageError struct {
	code int
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// PDFExportHandler 负责消费 PDF 导出任务。
type PDFExportHandler struct {
	printer   Printer
	uploader  Uploader
	exports   ExportRecorder
	publisher StatusPublisher
	logger    *slog.Logger

	finalAttempt func(ctx context.Context) bool
}

func NewPDFExportHandler(printer Printer, uploader Uploader, exports ExportRecorder, publisher StatusPublisher, logger *slog.Logger) *PDFExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExportHandler{
		printer:      printer,
		uploader:     uploader,
		exports:      exports,
		publisher:    publisher,
		logger:       logger,
		finalAttempt: isFinalAsynqAttempt,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PDFExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseExportPDFPayload(t.Payload())
	if err != nil {
		h.logger.Error("decode export payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("export_id", payload.ExportID),
		slog.String("session_id", payload.SessionID),
	)
	log.Info("pdf export started", slog.String("template", render.Normalize(payload.Template)))

	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !h.finalAttempt(ctx) {
			return
		}
		h.fail(ctx, log, payload, retErr)
	}()

	html, err := render.Render(payload.Document, payload.Template)
	if err != nil {
		log.Error("render resume failed", slog.Any("error", err))
		return &stageError{code: errcode.RenderFailed, err: fmt.Errorf("render resume: %w: %v", asynq.SkipRetry, err)}
	}

	data, err := h.printer.GeneratePDF(ctx, html)
	if err != nil {
		log.Error("print pdf failed", slog.Any("error", err))
		return fmt.Errorf("print pdf: %w", err)
	}

	metrics.ObserveExportSize(len(data))

	objectKey := storage.ExportObjectKey(payload.SessionID)
	if _, err := h.uploader.UploadFile(ctx, objectKey, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return &stageError{code: errcode.UploadFailed, err: err}
	}

	if err := h.exports.MarkCompleted(ctx, payload.ExportID, objectKey); err != nil {
		log.Error("mark export completed failed", slog.Any("error", err))
		if !errors.Is(err, database.ErrExportNotFound) {
			return err
		}
		// 记录已被删除，上传的文件不会再有人下载。
		if delErr := h.uploader.DeleteObject(ctx, objectKey); delErr != nil {
			log.Warn("delete orphaned pdf failed", slog.Any("error", delErr))
		}
		return &stageError{code: errcode.ResourceMissing, err: fmt.Errorf("%w: %v", asynq.SkipRetry, err)}
	}

	msg := notify.ExportStatusMessage{
		Status:        notify.ExportStatusCompleted,
		ExportID:      payload.ExportID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publisher.ExportStatus(ctx, payload.SessionID, msg); err != nil {
		// 记录已完成，客户端可以轮询状态接口。
		log.Warn("publish export status failed", slog.Any("error", err))
	}

	log.Info("pdf export completed", slog.String("object_key", objectKey), slog.Int("bytes", len(data)))
	return nil
}

func (h *PDFExportHandler) fail(ctx context.Context, log *slog.Logger, payload tasks.ExportPDFPayload, cause error) {
	code := errcode.SystemError
	var se *stageError
	if errors.As(cause, &se) {
		code = se.code
	}
	message := strings.TrimSpace(cause.Error())

	if err := h.exports.MarkFailed(ctx, payload.ExportID, code, message); err != nil {
		log.Error("mark export failed failed", slog.Any("error", err))
	}
	msg := notify.ExportStatusMessage{
		Status:        notify.ExportStatusError,
		ExportID:      payload.ExportID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
	if err := h.publisher.ExportStatus(ctx, payload.SessionID, msg); err != nil {
		log.Error("publish export error notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
