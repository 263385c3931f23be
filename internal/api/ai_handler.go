package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartresume/internal/api/middleware"
	"smartresume/internal/enhance"
	"smartresume/internal/resume"
)

// AIHandler 把文本生成动作暴露为 HTTP 接口。凭据只保存在会话内存中。
type AIHandler struct {
	scanner        Scanner
	uploadMaxBytes int64
}

func NewAIHandler(scanner Scanner, uploadMaxBytes int64) *AIHandler {
	return &AIHandler{scanner: scanner, uploadMaxBytes: uploadMaxBytes}
}

type credentialRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

type jobDescriptionRequest struct {
	JobDescription string `json:"job_description"`
}

type atsRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

type statusResponse struct {
	HasCredential bool                    `json:"has_credential"`
	Busy          map[enhance.Action]bool `json:"busy"`
}

type coverLetterResponse struct {
	CoverLetter string `json:"cover_letter"`
	Filename    string `json:"filename"`
}

// bindOptionalJSON 允许空请求体。
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, err.Error())
		return false
	}
	return true
}

func (h *AIHandler) SetCredential(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		BadRequest(c, "api_key is required")
		return
	}
	sess.SetCredential(req.APIKey)
	c.Status(http.StatusNoContent)
}

func (h *AIHandler) ClearCredential(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	sess.ClearCredential()
	c.Status(http.StatusNoContent)
}

// Status 返回凭据是否已设置以及各动作的忙碌状态，不回显凭据本身。
func (h *AIHandler) Status(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		HasCredential: sess.HasCredential(),
		Busy:          sess.Enhancer.Status(),
	})
}

func (h *AIHandler) Summary(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req jobDescriptionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	summary, err := sess.Enhancer.GenerateSummary(c.Request.Context(), req.JobDescription)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "resume": sess.Store.Document()})
}

func (h *AIHandler) WorkDescription(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req jobDescriptionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	description, err := sess.Enhancer.GenerateWorkDescription(c.Request.Context(), c.Param("id"), req.JobDescription)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": description, "resume": sess.Store.Document()})
}

func (h *AIHandler) WorkHighlights(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req jobDescriptionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	highlights, err := sess.Enhancer.GenerateWorkHighlights(c.Request.Context(), c.Param("id"), req.JobDescription)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"highlights": highlights, "resume": sess.Store.Document()})
}

func (h *AIHandler) JobMatch(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req jobDescriptionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	recommendations, err := sess.Enhancer.JobMatch(c.Request.Context(), req.JobDescription)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

// ATS 接受 JSON 或 multipart 表单；上传的文件按原始文本读取。
func (h *AIHandler) ATS(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req atsRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		text, ok := h.readUpload(c)
		if !ok {
			return
		}
		req.ResumeText = text
		req.JobDescription = c.PostForm("job_description")
	} else if !bindOptionalJSON(c, &req) {
		return
	}

	analysis, err := sess.Enhancer.AnalyzeATS(c.Request.Context(), req.ResumeText, req.JobDescription)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *AIHandler) readUpload(c *gin.Context) (string, bool) {
	log := middleware.LoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return "", false
	}
	if h.uploadMaxBytes > 0 && file.Size > h.uploadMaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return "", false
	}

	if h.scanner != nil {
		r, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file")
			return "", false
		}
		err = h.scanner.Scan(r)
		r.Close()
		if errors.Is(err, ErrInfected) {
			BadRequest(c, ErrInfected.Error())
			return "", false
		}
		if err != nil {
			log.Error("scan file", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return "", false
		}
	}

	r, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return "", false
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		Internal(c, "failed to read file")
		return "", false
	}
	return string(data), true
}

func (h *AIHandler) CoverLetter(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var job resume.JobDetails
	if err := c.ShouldBindJSON(&job); err != nil {
		BadRequest(c, err.Error())
		return
	}
	letter, err := sess.Enhancer.GenerateCoverLetter(c.Request.Context(), job)
	if err != nil {
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, coverLetterResponse{
		CoverLetter: letter,
		Filename:    enhance.CoverLetterFilename(job.Company),
	})
}
