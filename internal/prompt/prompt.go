// Package prompt 根据简历内容构造发送给文本生成服务的提示词。
// 所有函数都是纯函数，不依赖网络。
package prompt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"smartresume/internal/resume"
)

var funcs = template.FuncMap{
	"join": strings.Join,
}

type summaryData struct {
	Name           string
	Position       string
	Company        string
	Skills         []string
	JobDescription string
}

type workData struct {
	resume.WorkEntry
	JobDescription string
}

type jobMatchData struct {
	Summary        string
	Skills         []string
	Work           []resume.WorkEntry
	JobDescription string
}

type atsData struct {
	ResumeText     string
	JobDescription string
}

type coverLetterData struct {
	Name    string
	Email   string
	Phone   string
	Summary string
	Latest  *resume.WorkEntry
	Skills  []string
	Job     resume.JobDetails
}

// Summary 构造个人简介的生成提示词，参考最近一段工作经历与技能。
func Summary(doc resume.Document, jobDescription string) (string, error) {
	data := summaryData{
		Name:           doc.Basics.Name,
		Skills:         skillNames(doc.Skills),
		JobDescription: strings.TrimSpace(jobDescription),
	}
	if len(doc.Work) > 0 {
		data.Position = doc.Work[0].Position
		data.Company = doc.Work[0].Company
	}
	return execute(summaryTemplate, data)
}

func WorkDescription(entry resume.WorkEntry, jobDescription string) (string, error) {
	return execute(workDescriptionTemplate, workData{WorkEntry: entry, JobDescription: strings.TrimSpace(jobDescription)})
}

func WorkHighlights(entry resume.WorkEntry, jobDescription string) (string, error) {
	return execute(workHighlightsTemplate, workData{WorkEntry: entry, JobDescription: strings.TrimSpace(jobDescription)})
}

// JobMatch 构造职位匹配建议的提示词，jobDescription 不能为空。
func JobMatch(doc resume.Document, jobDescription string) (string, error) {
	return execute(jobMatchTemplate, jobMatchData{
		Summary:        doc.Basics.Summary,
		Skills:         skillNames(doc.Skills),
		Work:           doc.Work,
		JobDescription: strings.TrimSpace(jobDescription),
	})
}

// ATS 构造 ATS 兼容性分析的提示词，要求模型返回 JSON。
func ATS(resumeText, jobDescription string) (string, error) {
	return execute(atsTemplate, atsData{
		ResumeText:     resumeText,
		JobDescription: strings.TrimSpace(jobDescription),
	})
}

func CoverLetter(doc resume.Document, job resume.JobDetails) (string, error) {
	data := coverLetterData{
		Name:    doc.Basics.Name,
		Email:   doc.Basics.Email,
		Phone:   doc.Basics.Phone,
		Summary: doc.Basics.Summary,
		Skills:  skillNames(doc.Skills),
		Job:     job,
	}
	if len(doc.Work) > 0 {
		latest := doc.Work[0]
		data.Latest = &latest
	}
	return execute(coverLetterTemplate, data)
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func skillNames(skills []resume.SkillEntry) []string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return names
}

var bulletPrefix = regexp.MustCompile(`^\s*(?:[-•*]+\s*|\d+[.)]\s+)`)

// ParseHighlights 把模型输出按行拆分为要点，去掉前导的项目符号或编号以及空行。
func ParseHighlights(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// CleanJSON 去掉模型有时包裹在 JSON 外层的 markdown 代码块标记。
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}
