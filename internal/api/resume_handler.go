package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartresume/internal/api/middleware"
	"smartresume/internal/render"
	"smartresume/internal/resume"
	"smartresume/internal/session"
)

// ResumeHandler 负责文档的读取与编辑。所有修改都经过会话的 DocumentStore。
type ResumeHandler struct{}

func NewResumeHandler() *ResumeHandler {
	return &ResumeHandler{}
}

type resumeResponse struct {
	Resume        resume.Document `json:"resume"`
	ActiveSection string          `json:"active_section"`
}

type addEntryResponse struct {
	ID     string          `json:"id"`
	Resume resume.Document `json:"resume"`
}

type activeSectionRequest struct {
	Section string `json:"section" binding:"required"`
}

func respondResume(c *gin.Context, status int, sess *session.Session) {
	c.JSON(status, resumeResponse{
		Resume:        sess.Store.Document(),
		ActiveSection: sess.Store.ActiveSection(),
	})
}

func storeFailed(c *gin.Context, err error) {
	middleware.LoggerFromContext(c).Error("persist resume failed", slog.Any("error", err))
	Internal(c, "failed to save resume")
}

// Get 返回当前文档与激活分区。
func (h *ResumeHandler) Get(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	respondResume(c, http.StatusOK, sess)
}

func (h *ResumeHandler) UpdateBasics(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var patch resume.BasicsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := sess.Store.UpdateBasics(c.Request.Context(), patch); err != nil {
		storeFailed(c, err)
		return
	}
	respondResume(c, http.StatusOK, sess)
}

func (h *ResumeHandler) UpdateMetadata(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var patch resume.MetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := sess.Store.UpdateMetadata(c.Request.Context(), patch); err != nil {
		storeFailed(c, err)
		return
	}
	respondResume(c, http.StatusOK, sess)
}

// SetActiveSection 只接受 basics 或可重复分区的键。
func (h *ResumeHandler) SetActiveSection(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req activeSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if _, known := resume.ParseSection(req.Section); !known && req.Section != resume.DefaultActiveSection {
		BadRequest(c, "unknown section")
		return
	}
	if err := sess.Store.SetActiveSection(c.Request.Context(), req.Section); err != nil {
		storeFailed(c, err)
		return
	}
	respondResume(c, http.StatusOK, sess)
}

func (h *ResumeHandler) Reset(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	if err := sess.Store.ResetResume(c.Request.Context()); err != nil {
		storeFailed(c, err)
		return
	}
	respondResume(c, http.StatusOK, sess)
}

// AddEntry 在分区末尾追加一个空条目。
func (h *ResumeHandler) AddEntry(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	section, known := resume.ParseSection(c.Param("section"))
	if !known {
		NotFound(c, "unknown section")
		return
	}

	ctx := c.Request.Context()
	var (
		id  string
		err error
	)
	switch section {
	case resume.SectionWork:
		id, err = sess.Store.AddWork(ctx)
	case resume.SectionEducation:
		id, err = sess.Store.AddEducation(ctx)
	case resume.SectionSkills:
		id, err = sess.Store.AddSkill(ctx)
	case resume.SectionProjects:
		id, err = sess.Store.AddProject(ctx)
	case resume.SectionAwards:
		id, err = sess.Store.AddAward(ctx)
	case resume.SectionLanguages:
		id, err = sess.Store.AddLanguage(ctx)
	}
	if err != nil {
		storeFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, addEntryResponse{ID: id, Resume: sess.Store.Document()})
}

// UpdateEntry 合并条目字段。id 不存在时静默忽略，与存储层一致。
func (h *ResumeHandler) UpdateEntry(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	section, known := resume.ParseSection(c.Param("section"))
	if !known {
		NotFound(c, "unknown section")
		return
	}

	id := c.Param("id")
	var handled bool
	switch section {
	case resume.SectionWork:
		handled = applyPatch(c, id, sess.Store.UpdateWork)
	case resume.SectionEducation:
		handled = applyPatch(c, id, sess.Store.UpdateEducation)
	case resume.SectionSkills:
		handled = applyPatch(c, id, sess.Store.UpdateSkill)
	case resume.SectionProjects:
		handled = applyPatch(c, id, sess.Store.UpdateProject)
	case resume.SectionAwards:
		handled = applyPatch(c, id, sess.Store.UpdateAward)
	case resume.SectionLanguages:
		handled = applyPatch(c, id, sess.Store.UpdateLanguage)
	}
	if handled {
		respondResume(c, http.StatusOK, sess)
	}
}

// applyPatch 解码并应用分区对应的 Patch；失败时已写出响应并返回 false。
func applyPatch[P any](c *gin.Context, id string, update func(context.Context, string, P) error) bool {
	var patch P
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return false
	}
	if err := update(c.Request.Context(), id, patch); err != nil {
		storeFailed(c, err)
		return false
	}
	return true
}

func (h *ResumeHandler) RemoveEntry(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	section, known := resume.ParseSection(c.Param("section"))
	if !known {
		NotFound(c, "unknown section")
		return
	}

	ctx, id := c.Request.Context(), c.Param("id")
	var err error
	switch section {
	case resume.SectionWork:
		err = sess.Store.RemoveWork(ctx, id)
	case resume.SectionEducation:
		err = sess.Store.RemoveEducation(ctx, id)
	case resume.SectionSkills:
		err = sess.Store.RemoveSkill(ctx, id)
	case resume.SectionProjects:
		err = sess.Store.RemoveProject(ctx, id)
	case resume.SectionAwards:
		err = sess.Store.RemoveAward(ctx, id)
	case resume.SectionLanguages:
		err = sess.Store.RemoveLanguage(ctx, id)
	}
	if err != nil {
		storeFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Preview 返回 HTML 预览，template 参数缺省时使用文档设置的模板。
func (h *ResumeHandler) Preview(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	doc := sess.Store.Document()
	templateID := c.DefaultQuery("template", doc.Metadata.Template)

	html, err := render.Render(doc, templateID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render preview failed", slog.Any("error", err))
		Internal(c, "failed to render resume")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
