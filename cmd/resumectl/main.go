// resumectl 在本地目录里编辑一份简历，不需要启动 API 服务。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"smartresume/internal/ai"
	"smartresume/internal/enhance"
	"smartresume/internal/render"
	"smartresume/internal/resume"
	"smartresume/internal/store"
)

// storageKey 与浏览器端使用的键一致。
const storageKey = "resume-storage"

const usage = `用法: resumectl [flags] <command> [args]

命令:
  show                     输出当前文档 JSON
  set <field> <value>      修改 basics 字段（name/email/phone/website/summary）或 template
  add <section>            追加一个空条目并输出其 id
  remove <section> <id>    删除条目
  render                   输出 HTML（--template 指定模板）
  text                     输出纯文本
  summary                  生成个人简介并写回文档
  ats                      ATS 兼容性分析（--file 指定简历文本）
  reset                    恢复默认文档

flags:
`

type options struct {
	dir      string
	template string
	out      string
	file     string
	job      string
	apiKey   string
	provider string
	model    string
}

type staticCredential string

func (c staticCredential) Credential() string { return string(c) }

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("resumectl: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var opts options
	flags := pflag.NewFlagSet("resumectl", pflag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.StringVarP(&opts.dir, "dir", "d", envOr("RESUME_DIR", ".resume"), "文档所在目录（默认读 RESUME_DIR）")
	flags.StringVarP(&opts.template, "template", "t", "", "render 使用的模板，默认取文档设置")
	flags.StringVarP(&opts.out, "out", "o", "", "输出文件，默认 stdout")
	flags.StringVarP(&opts.file, "file", "f", "", "ats 使用的简历文本文件")
	flags.StringVarP(&opts.job, "job", "j", "", "职位描述")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("AI_API_KEY"), "文本生成服务凭据（默认读 AI_API_KEY）")
	flags.StringVar(&opts.provider, "provider", envOr("AI_PROVIDER", ai.ProviderOpenAI), "openai 或 googleai")
	flags.StringVar(&opts.model, "model", os.Getenv("AI_MODEL"), "模型名称")
	flags.Usage = func() {
		fmt.Fprint(stdout, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	persister, err := store.NewFilePersister(opts.dir)
	if err != nil {
		return err
	}
	docs, err := store.New(ctx, persister, storageKey)
	if err != nil {
		return err
	}

	out := stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "show":
		return writeJSON(out, docs.Document())
	case "set":
		if len(cmdArgs) != 2 {
			return errors.New("usage: set <field> <value>")
		}
		if cmdArgs[0] == "template" {
			if !slices.Contains(render.Templates(), cmdArgs[1]) {
				return fmt.Errorf("unknown template %q", cmdArgs[1])
			}
			return docs.UpdateMetadata(ctx, resume.MetadataPatch{Template: &cmdArgs[1]})
		}
		patch, err := basicsPatch(cmdArgs[0], cmdArgs[1])
		if err != nil {
			return err
		}
		return docs.UpdateBasics(ctx, patch)
	case "add":
		if len(cmdArgs) != 1 {
			return errors.New("usage: add <section>")
		}
		id, err := addEntry(ctx, docs, cmdArgs[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, id)
		return err
	case "remove":
		if len(cmdArgs) != 2 {
			return errors.New("usage: remove <section> <id>")
		}
		return removeEntry(ctx, docs, cmdArgs[0], cmdArgs[1])
	case "render":
		doc := docs.Document()
		templateID := opts.template
		if templateID == "" {
			templateID = doc.Metadata.Template
		}
		html, err := render.Render(doc, templateID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, html)
		return err
	case "text":
		_, err := io.WriteString(out, render.PlainText(docs.Document()))
		return err
	case "summary":
		summary, err := newEnhancer(docs, opts).GenerateSummary(ctx, opts.job)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, summary)
		return err
	case "ats":
		var text string
		if opts.file != "" {
			data, err := os.ReadFile(opts.file)
			if err != nil {
				return fmt.Errorf("read resume file: %w", err)
			}
			text = string(data)
		}
		analysis, err := newEnhancer(docs, opts).AnalyzeATS(ctx, text, opts.job)
		if err != nil {
			return err
		}
		return writeJSON(out, analysis)
	case "reset":
		return docs.ResetResume(ctx)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newEnhancer(docs *store.DocumentStore, opts options) *enhance.Service {
	factory := func(ctx context.Context, apiKey string) (ai.Collaborator, error) {
		client, err := ai.NewClient(ctx, ai.Options{Provider: opts.provider, APIKey: apiKey, Model: opts.model})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return enhance.NewService(docs, staticCredential(opts.apiKey), factory, nil)
}

func basicsPatch(field, value string) (resume.BasicsPatch, error) {
	var p resume.BasicsPatch
	switch field {
	case "name":
		p.Name = &value
	case "email":
		p.Email = &value
	case "phone":
		p.Phone = &value
	case "website":
		p.Website = &value
	case "summary":
		p.Summary = &value
	default:
		return p, fmt.Errorf("unknown basics field %q", field)
	}
	return p, nil
}

func addEntry(ctx context.Context, docs *store.DocumentStore, raw string) (string, error) {
	section, ok := resume.ParseSection(raw)
	if !ok {
		return "", fmt.Errorf("unknown section %q", raw)
	}
	switch section {
	case resume.SectionWork:
		return docs.AddWork(ctx)
	case resume.SectionEducation:
		return docs.AddEducation(ctx)
	case resume.SectionSkills:
		return docs.AddSkill(ctx)
	case resume.SectionProjects:
		return docs.AddProject(ctx)
	case resume.SectionAwards:
		return docs.AddAward(ctx)
	default:
		return docs.AddLanguage(ctx)
	}
}

func removeEntry(ctx context.Context, docs *store.DocumentStore, raw, id string) error {
	section, ok := resume.ParseSection(raw)
	if !ok {
		return fmt.Errorf("unknown section %q", raw)
	}
	switch section {
	case resume.SectionWork:
		return docs.RemoveWork(ctx, id)
	case resume.SectionEducation:
		return docs.RemoveEducation(ctx, id)
	case resume.SectionSkills:
		return docs.RemoveSkill(ctx, id)
	case resume.SectionProjects:
		return docs.RemoveProject(ctx, id)
	case resume.SectionAwards:
		return docs.RemoveAward(ctx, id)
	default:
		return docs.RemoveLanguage(ctx, id)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
