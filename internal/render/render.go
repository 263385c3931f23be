// Package render 把简历文档渲染为 HTML 预览或纯文本。
// 渲染是纯函数：同样的文档与模板总是得到同样的输出。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"smartresume/internal/resume"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultTemplate 是未知或空模板标识的回退值。
const DefaultTemplate = resume.TemplateModern

const namePlaceholder = "Your Name"

var known = []string{resume.TemplateModern, resume.TemplateClassic}

var pages = template.Must(template.New("resume").Funcs(template.FuncMap{
	"date":        FormatDate,
	"span":        DateRange,
	"join":        strings.Join,
	"upper":       strings.ToUpper,
	"location":    formatLocation,
	"displayName": displayName,
	"font":        fontFamily,
}).ParseFS(templateFS, "templates/*.html"))

// Templates 返回全部可用模板标识。
func Templates() []string {
	return slices.Clone(known)
}

// Normalize 把未知模板标识映射为默认模板。
func Normalize(id string) string {
	if slices.Contains(known, id) {
		return id
	}
	return DefaultTemplate
}

// Render 用指定模板渲染文档。
func Render(doc resume.Document, templateID string) (string, error) {
	doc = doc.Clone()
	doc.Normalize()
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, Normalize(templateID)+".html", doc); err != nil {
		return "", fmt.Errorf("render %s template: %w", Normalize(templateID), err)
	}
	return buf.String(), nil
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return namePlaceholder
	}
	return name
}

// fontFamily 在未设置字体时回退到默认字体，文档本身不变。
func fontFamily(name string) string {
	if strings.TrimSpace(name) == "" {
		return resume.DefaultFontFamily
	}
	return name
}

// formatLocation 只有城市非空时才输出 "city[, region][, country]"。
func formatLocation(l resume.Location) string {
	if l.City == "" {
		return ""
	}
	parts := []string{l.City}
	if l.Region != "" {
		parts = append(parts, l.Region)
	}
	if l.Country != "" {
		parts = append(parts, l.Country)
	}
	return strings.Join(parts, ", ")
}

