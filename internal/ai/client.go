package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"smartresume/internal/metrics"
	"smartresume/internal/prompt"
	"smartresume/internal/resume"
)

const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "googleai"

	DefaultOpenAIModel = "gpt-3.5-turbo"
	DefaultGoogleModel = "gemini-2.5-flash"
)

// Generator 是 langchaingo 模型中 Client 用到的唯一方法。
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Options 描述如何连接文本生成服务。APIKey 由用户在会话中提供。
type Options struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client 通过 langchaingo 实现 Collaborator。
type Client struct {
	llm Generator
}

var _ Collaborator = (*Client)(nil)

// NewClient 按 Provider 创建底层模型，APIKey 为空时返回 ErrMissingCredential。
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingCredential
	}

	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenAI:
		model := opts.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		llmOpts := []openai.Option{
			openai.WithToken(opts.APIKey),
			openai.WithModel(model),
		}
		if opts.BaseURL != "" {
			llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
		}
		if opts.HTTPClient != nil {
			llmOpts = append(llmOpts, openai.WithHTTPClient(opts.HTTPClient))
		}
		llm, err := openai.New(llmOpts...)
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return NewClientWithGenerator(llm), nil

	case ProviderGoogle:
		model := opts.Model
		if model == "" {
			model = DefaultGoogleModel
		}
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(opts.APIKey),
			googleai.WithDefaultModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("init googleai client: %w", err)
		}
		return NewClientWithGenerator(llm), nil

	default:
		return nil, fmt.Errorf("unsupported ai provider %q", opts.Provider)
	}
}

// NewClientWithGenerator 直接使用给定的模型，测试中传入 fake。
func NewClientWithGenerator(llm Generator) *Client {
	return &Client{llm: llm}
}

// Generate 执行自由文本生成。
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, "generate", prompt.SystemResumeWriter, text,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(500),
	)
}

// AnalyzeCompatibility 让模型以 JSON 返回 ATS 评分与建议。
func (c *Client) AnalyzeCompatibility(ctx context.Context, resumeText, jobDescription string) (Analysis, error) {
	text, err := prompt.ATS(resumeText, jobDescription)
	if err != nil {
		return Analysis{}, err
	}
	out, err := c.complete(ctx, "ats", prompt.SystemATSAnalyst, text,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(1000),
		llms.WithJSONMode(),
	)
	if err != nil {
		return Analysis{}, err
	}
	return parseAnalysis(out, strings.TrimSpace(jobDescription) != "")
}

func (c *Client) GenerateCoverLetter(ctx context.Context, doc resume.Document, job resume.JobDetails) (string, error) {
	text, err := prompt.CoverLetter(doc, job)
	if err != nil {
		return "", err
	}
	return c.complete(ctx, "cover_letter", prompt.SystemCoverLetterWriter, text,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1000),
	)
}

func (c *Client) complete(ctx context.Context, kind, system, human string, options ...llms.CallOption) (out string, err error) {
	done := metrics.TrackAICall(kind)
	defer func() { done(err) }()

	resp, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, human),
	}, options...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out = strings.TrimSpace(resp.Choices[0].Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

type rawAnalysis struct {
	Score          *float64        `json:"score"`
	Suggestions    []string        `json:"suggestions"`
	KeywordMatches map[string]bool `json:"keywordMatches"`
}

// parseAnalysis 解码模型输出。分数被限制在 [0,100]，没有职位描述时丢弃关键词匹配。
func parseAnalysis(out string, withJob bool) (Analysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(prompt.CleanJSON(out)), &raw); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Score == nil {
		return Analysis{}, fmt.Errorf("%w: missing score", ErrMalformedResponse)
	}

	suggestions := make([]string, 0, len(raw.Suggestions))
	for _, s := range raw.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	if len(suggestions) == 0 {
		return Analysis{}, fmt.Errorf("%w: no suggestions", ErrMalformedResponse)
	}

	score := int(*raw.Score + 0.5)
	score = max(0, min(100, score))

	a := Analysis{Score: score, Suggestions: suggestions}
	if withJob && len(raw.KeywordMatches) > 0 {
		a.KeywordMatches = raw.KeywordMatches
	}
	return a, nil
}
