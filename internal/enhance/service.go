// Package enhance 把文本生成结果写回简历文档。
// 每个动作先解析凭据，调用成功后才修改文档；失败时文档保持不变。
package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"smartresume/internal/ai"
	"smartresume/internal/prompt"
	"smartresume/internal/render"
	"smartresume/internal/resume"
)

var (
	ErrEntryNotFound          = errors.New("resume entry not found")
	ErrJobDescriptionRequired = errors.New("job description is required")
	ErrMissingJobDetails      = errors.New("position and company are required")
)

// Action 标识一个可单独显示忙碌状态的动作。
type Action string

const (
	ActionSummary         Action = "summary"
	ActionWorkDescription Action = "work_description"
	ActionWorkHighlights  Action = "work_highlights"
	ActionJobMatch        Action = "job_match"
	ActionATS             Action = "ats"
	ActionCoverLetter     Action = "cover_letter"
)

// Actions 列出全部动作，用于状态查询。
var Actions = []Action{
	ActionSummary,
	ActionWorkDescription,
	ActionWorkHighlights,
	ActionJobMatch,
	ActionATS,
	ActionCoverLetter,
}

// DocumentStore 是 Service 对文档存储的最小依赖。
type DocumentStore interface {
	Document() resume.Document
	UpdateBasics(ctx context.Context, patch resume.BasicsPatch) error
	UpdateWork(ctx context.Context, id string, patch resume.WorkPatch) error
}

// CredentialSource 返回当前会话的凭据，未设置时返回空字符串。
type CredentialSource interface {
	Credential() string
}

// Factory 用凭据创建一个 Collaborator。
type Factory func(ctx context.Context, apiKey string) (ai.Collaborator, error)

type Service struct {
	store   DocumentStore
	creds   CredentialSource
	factory Factory
	logger  *slog.Logger

	mu   sync.Mutex
	busy map[Action]int
}

func NewService(store DocumentStore, creds CredentialSource, factory Factory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		creds:   creds,
		factory: factory,
		logger:  logger,
		busy:    map[Action]int{},
	}
}

// Busy 报告某个动作是否有调用正在进行。
func (s *Service) Busy(action Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[action] > 0
}

// Status 返回全部动作的忙碌状态。
func (s *Service) Status() map[Action]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Action]bool, len(Actions))
	for _, a := range Actions {
		out[a] = s.busy[a] > 0
	}
	return out
}

// GenerateSummary 生成个人简介并写入 basics.summary。
func (s *Service) GenerateSummary(ctx context.Context, jobDescription string) (string, error) {
	collab, done, err := s.begin(ctx, ActionSummary)
	if err != nil {
		return "", err
	}
	defer done()

	text, err := prompt.Summary(s.store.Document(), jobDescription)
	if err != nil {
		return "", err
	}
	summary, err := collab.Generate(ctx, text)
	if err != nil {
		return "", s.fail(ActionSummary, err)
	}
	if err := s.store.UpdateBasics(ctx, resume.BasicsPatch{Summary: &summary}); err != nil {
		return "", err
	}
	return summary, nil
}

// GenerateWorkDescription 为指定工作经历生成描述。
func (s *Service) GenerateWorkDescription(ctx context.Context, workID, jobDescription string) (string, error) {
	collab, done, err := s.begin(ctx, ActionWorkDescription)
	if err != nil {
		return "", err
	}
	defer done()

	entry, err := s.findWork(workID)
	if err != nil {
		return "", err
	}
	text, err := prompt.WorkDescription(entry, jobDescription)
	if err != nil {
		return "", err
	}
	description, err := collab.Generate(ctx, text)
	if err != nil {
		return "", s.fail(ActionWorkDescription, err)
	}
	if err := s.store.UpdateWork(ctx, workID, resume.WorkPatch{Description: &description}); err != nil {
		return "", err
	}
	return description, nil
}

// GenerateWorkHighlights 生成要点列表并整体替换 highlights。
func (s *Service) GenerateWorkHighlights(ctx context.Context, workID, jobDescription string) ([]string, error) {
	collab, done, err := s.begin(ctx, ActionWorkHighlights)
	if err != nil {
		return nil, err
	}
	defer done()

	entry, err := s.findWork(workID)
	if err != nil {
		return nil, err
	}
	text, err := prompt.WorkHighlights(entry, jobDescription)
	if err != nil {
		return nil, err
	}
	out, err := collab.Generate(ctx, text)
	if err != nil {
		return nil, s.fail(ActionWorkHighlights, err)
	}
	highlights := prompt.ParseHighlights(out)
	if err := s.store.UpdateWork(ctx, workID, resume.WorkPatch{Highlights: &highlights}); err != nil {
		return nil, err
	}
	return highlights, nil
}

// JobMatch 返回针对职位描述的修改建议，不修改文档。
func (s *Service) JobMatch(ctx context.Context, jobDescription string) (string, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return "", ErrJobDescriptionRequired
	}
	collab, done, err := s.begin(ctx, ActionJobMatch)
	if err != nil {
		return "", err
	}
	defer done()

	text, err := prompt.JobMatch(s.store.Document(), jobDescription)
	if err != nil {
		return "", err
	}
	out, err := collab.Generate(ctx, text)
	if err != nil {
		return "", s.fail(ActionJobMatch, err)
	}
	return out, nil
}

// AnalyzeATS 分析简历文本；resumeText 为空时使用当前文档的纯文本渲染。
func (s *Service) AnalyzeATS(ctx context.Context, resumeText, jobDescription string) (ai.Analysis, error) {
	collab, done, err := s.begin(ctx, ActionATS)
	if err != nil {
		return ai.Analysis{}, err
	}
	defer done()

	if strings.TrimSpace(resumeText) == "" {
		resumeText = render.PlainText(s.store.Document())
	}
	analysis, err := collab.AnalyzeCompatibility(ctx, resumeText, jobDescription)
	if err != nil {
		return ai.Analysis{}, s.fail(ActionATS, err)
	}
	return analysis, nil
}

// GenerateCoverLetter 生成求职信文本，不写入文档。
func (s *Service) GenerateCoverLetter(ctx context.Context, job resume.JobDetails) (string, error) {
	if strings.TrimSpace(job.Position) == "" || strings.TrimSpace(job.Company) == "" {
		return "", ErrMissingJobDetails
	}
	collab, done, err := s.begin(ctx, ActionCoverLetter)
	if err != nil {
		return "", err
	}
	defer done()

	letter, err := collab.GenerateCoverLetter(ctx, s.store.Document(), job)
	if err != nil {
		return "", s.fail(ActionCoverLetter, err)
	}
	return letter, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CoverLetterFilename 返回导出文件名，公司名中的空白替换为下划线。
func CoverLetterFilename(company string) string {
	return "Cover_Letter_" + whitespaceRun.ReplaceAllString(company, "_") + ".txt"
}

// begin 解析凭据并标记动作忙碌。凭据缺失时不会创建 Collaborator。
func (s *Service) begin(ctx context.Context, action Action) (ai.Collaborator, func(), error) {
	key := ""
	if s.creds != nil {
		key = strings.TrimSpace(s.creds.Credential())
	}
	if key == "" || s.factory == nil {
		return nil, nil, ai.ErrMissingCredential
	}
	collab, err := s.factory(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.busy[action]++
	s.mu.Unlock()

	var once sync.Once
	return collab, func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy[action]--
			s.mu.Unlock()
		})
	}, nil
}

func (s *Service) findWork(id string) (resume.WorkEntry, error) {
	for _, w := range s.store.Document().Work {
		if w.ID == id {
			return w, nil
		}
	}
	return resume.WorkEntry{}, fmt.Errorf("%w: work %s", ErrEntryNotFound, id)
}

func (s *Service) fail(action Action, err error) error {
	s.logger.Warn("ai action failed", slog.String("action", string(action)), slog.Any("error", err))
	return err
}
