// Package ai 封装外部文本生成服务。每次调用都是单次请求：不重试、不缓存，
// 超时只由底层 http.Client 决定。
package ai

import (
	"context"
	"errors"

	"smartresume/internal/resume"
)

var (
	ErrMissingCredential = errors.New("ai credential required")
	ErrEmptyResponse     = errors.New("ai returned an empty response")
	ErrMalformedResponse = errors.New("ai returned a malformed response")
)

// Analysis 是 ATS 兼容性分析的结果。没有职位描述时 KeywordMatches 为 nil。
type Analysis struct {
	Score          int             `json:"score"`
	Suggestions    []string        `json:"suggestions"`
	KeywordMatches map[string]bool `json:"keywordMatches,omitempty"`
}

// Collaborator 是文本生成服务的调用契约。
type Collaborator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	AnalyzeCompatibility(ctx context.Context, resumeText, jobDescription string) (Analysis, error)
	GenerateCoverLetter(ctx context.Context, doc resume.Document, job resume.JobDetails) (string, error)
}
