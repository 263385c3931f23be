package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartresume/internal/api/middleware"
	"smartresume/internal/database"
	"smartresume/internal/enhance"
	"smartresume/internal/errcode"
	"smartresume/internal/notify"
	"smartresume/internal/render"
	"smartresume/internal/storage"
	"smartresume/internal/tasks"
)

// ExportHandler 处理求职信下载与 PDF 异步导出。
type ExportHandler struct {
	exports ExportRepository
	queue   TaskEnqueuer
	links   LinkSigner
}

func NewExportHandler(exports ExportRepository, queue TaskEnqueuer, links LinkSigner) *ExportHandler {
	return &ExportHandler{exports: exports, queue: queue, links: links}
}

type coverLetterExportRequest struct {
	Company     string `json:"company" binding:"required"`
	CoverLetter string `json:"cover_letter" binding:"required"`
}

type createExportRequest struct {
	Template string `json:"template" binding:"omitempty,oneof=modern classic"`
}

type exportResponse struct {
	ExportID     string    `json:"export_id"`
	Status       string    `json:"status"`
	Template     string    `json:"template"`
	ErrorCode    int       `json:"error_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CoverLetter 以纯文本附件返回求职信。
func (h *ExportHandler) CoverLetter(c *gin.Context) {
	var req coverLetterExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	filename := enhance.CoverLetterFilename(req.Company)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(req.CoverLetter))
}

// CreatePDF 记录导出并入队，文档按请求时刻的内容快照。
func (h *ExportHandler) CreatePDF(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req createExportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)
	doc := sess.Store.Document()
	templateID := req.Template
	if templateID == "" {
		templateID = render.Normalize(doc.Metadata.Template)
	}

	correlationID := middleware.CorrelationIDFromContext(ctx)
	export := &database.Export{
		ID:            uuid.NewString(),
		SessionID:     sess.ID,
		Template:      templateID,
		Status:        notify.ExportStatusPending,
		CorrelationID: correlationID,
	}
	if err := h.exports.Create(ctx, export); err != nil {
		log.Error("create export failed", slog.Any("error", err))
		Internal(c, "failed to create export")
		return
	}

	task, err := tasks.NewExportPDFTask(tasks.ExportPDFPayload{
		ExportID:      export.ID,
		SessionID:     sess.ID,
		Template:      templateID,
		Document:      doc,
		CorrelationID: correlationID,
	})
	if err != nil {
		h.abortExport(c, export.ID, err)
		return
	}
	taskInfo, err := h.queue.EnqueueContext(ctx, task)
	if err != nil {
		h.abortExport(c, export.ID, err)
		return
	}

	log.Info("pdf export enqueued", slog.String("export_id", export.ID), slog.String("task_id", taskInfo.ID))
	c.JSON(http.StatusAccepted, gin.H{"export_id": export.ID, "task_id": taskInfo.ID})
}

func (h *ExportHandler) abortExport(c *gin.Context, exportID string, cause error) {
	log := middleware.LoggerFromContext(c)
	log.Error("enqueue export failed", slog.String("export_id", exportID), slog.Any("error", cause))
	if err := h.exports.MarkFailed(c.Request.Context(), exportID, errcode.SystemError, "enqueue failed"); err != nil {
		log.Error("mark export failed failed", slog.Any("error", err))
	}
	Internal(c, "failed to enqueue export")
}

// Get 返回导出状态，只能查询本会话的记录。
func (h *ExportHandler) Get(c *gin.Context) {
	export, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, exportResponse{
		ExportID:     export.ID,
		Status:       export.Status,
		Template:     export.Template,
		ErrorCode:    export.ErrorCode,
		ErrorMessage: export.ErrorMessage,
		CreatedAt:    export.CreatedAt,
		UpdatedAt:    export.UpdatedAt,
	})
}

// DownloadLink 为已完成的导出签发限时下载链接。
func (h *ExportHandler) DownloadLink(c *gin.Context) {
	export, ok := h.lookup(c)
	if !ok {
		return
	}
	if export.Status != notify.ExportStatusCompleted || export.ObjectKey == "" {
		Conflict(c, "export is not ready")
		return
	}

	url, err := h.links.GeneratePresignedURL(c.Request.Context(), export.ObjectKey, "resume.pdf", storage.DownloadLinkTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(storage.DownloadLinkTTL.Seconds()),
	})
}

func (h *ExportHandler) lookup(c *gin.Context) (*database.Export, bool) {
	sess, ok := currentSession(c)
	if !ok {
		return nil, false
	}
	export, err := h.exports.Get(c.Request.Context(), sess.ID, c.Param("id"))
	if errors.Is(err, database.ErrExportNotFound) {
		NotFound(c, "export not found")
		return nil, false
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("get export failed", slog.Any("error", err))
		Internal(c, "failed to get export")
		return nil, false
	}
	return export, true
}
