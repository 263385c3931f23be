package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"smartresume/internal/api/middleware"
	"smartresume/internal/database"
	"smartresume/internal/session"
)

// SessionProvider 创建与查找编辑会话，由 session.Manager 实现。
type SessionProvider interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
}

// TaskEnqueuer 由 asynq.Client 实现。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportRepository 保存导出记录。
type ExportRepository interface {
	Create(ctx context.Context, export *database.Export) error
	Get(ctx context.Context, sessionID, id string) (*database.Export, error)
	MarkFailed(ctx context.Context, id string, code int, message string) error
}

// LinkSigner 为导出文件签发下载链接。
type LinkSigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey, filename string, duration time.Duration) (string, error)
}

// Deps 汇总路由所需的依赖。Scanner 为 nil 时跳过上传扫描，RateCounter 为 nil 时不限流。
type Deps struct {
	Sessions       SessionProvider
	Tokens         TokenService
	Exports        ExportRepository
	Queue          TaskEnqueuer
	Links          LinkSigner
	Scanner        Scanner
	Subscriber     Subscriber
	RateCounter    middleware.RateCounter
	Logger         *slog.Logger
	AllowedOrigins []string
	UploadMaxBytes int64
	AIRateLimit    int
}

// RegisterRoutes 注册 /v1 下的全部路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionHandler := NewSessionHandler(deps.Sessions, deps.Tokens)
	resumeHandler := NewResumeHandler()
	aiHandler := NewAIHandler(deps.Scanner, deps.UploadMaxBytes)
	exportHandler := NewExportHandler(deps.Exports, deps.Queue, deps.Links)
	wsHandler := NewWsHandler(deps.Subscriber, deps.Tokens, logger, deps.AllowedOrigins)
	sessionAuth := middleware.SessionMiddleware(deps.Tokens, deps.Sessions)
	aiLimit := middleware.AIRateLimitMiddleware(deps.RateCounter, deps.AIRateLimit, nil)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.POST("/sessions", sessionHandler.Create)

		resumeGroup := v1.Group("/resume")
		resumeGroup.Use(sessionAuth)
		{
			resumeGroup.GET("", resumeHandler.Get)
			resumeGroup.GET("/preview", resumeHandler.Preview)
			resumeGroup.PATCH("/basics", resumeHandler.UpdateBasics)
			resumeGroup.PATCH("/metadata", resumeHandler.UpdateMetadata)
			resumeGroup.PUT("/active-section", resumeHandler.SetActiveSection)
			resumeGroup.POST("/reset", resumeHandler.Reset)
			resumeGroup.POST("/:section", resumeHandler.AddEntry)
			resumeGroup.PATCH("/:section/:id", resumeHandler.UpdateEntry)
			resumeGroup.DELETE("/:section/:id", resumeHandler.RemoveEntry)
		}

		aiGroup := v1.Group("/ai")
		aiGroup.Use(sessionAuth)
		{
			aiGroup.PUT("/credential", aiHandler.SetCredential)
			aiGroup.DELETE("/credential", aiHandler.ClearCredential)
			aiGroup.GET("/status", aiHandler.Status)
			aiGroup.POST("/summary", aiLimit, aiHandler.Summary)
			aiGroup.POST("/work/:id/description", aiLimit, aiHandler.WorkDescription)
			aiGroup.POST("/work/:id/highlights", aiLimit, aiHandler.WorkHighlights)
			aiGroup.POST("/job-match", aiLimit, aiHandler.JobMatch)
			aiGroup.POST("/ats", aiLimit, aiHandler.ATS)
			aiGroup.POST("/cover-letter", aiLimit, aiHandler.CoverLetter)
		}

		v1.POST("/cover-letter/export", sessionAuth, exportHandler.CoverLetter)

		exportGroup := v1.Group("/exports")
		exportGroup.Use(sessionAuth)
		{
			exportGroup.POST("/pdf", exportHandler.CreatePDF)
			exportGroup.GET("/:id", exportHandler.Get)
			exportGroup.GET("/:id/download-link", exportHandler.DownloadLink)
		}
	}
}
