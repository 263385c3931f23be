package render

import (
	"strings"

	"smartresume/internal/resume"
)

// PlainText 把文档渲染为适合 ATS 分析的纯文本。空分区与空字段同样省略。
func PlainText(doc resume.Document) string {
	var b strings.Builder
	line := func(parts ...string) {
		var kept []string
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			b.WriteString(strings.Join(kept, " | "))
			b.WriteByte('\n')
		}
	}
	heading := func(title string) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToUpper(title))
		b.WriteByte('\n')
	}
	bullets := func(items []string) {
		for _, item := range items {
			if strings.TrimSpace(item) != "" {
				b.WriteString("- ")
				b.WriteString(item)
				b.WriteByte('\n')
			}
		}
	}

	basics := doc.Basics
	line(displayName(basics.Name))
	line(basics.Email, basics.Phone, basics.Website, formatLocation(basics.Location))
	for _, p := range basics.Profiles {
		line(p.Network, p.Username, p.URL)
	}

	if basics.Summary != "" {
		heading("Summary")
		line(basics.Summary)
	}

	if len(doc.Work) > 0 {
		heading("Experience")
		for _, w := range doc.Work {
			line(w.Position, w.Company, w.Location, DateRange(w.StartDate, w.EndDate, true))
			line(w.Description)
			bullets(w.Highlights)
		}
	}

	if len(doc.Education) > 0 {
		heading("Education")
		for _, e := range doc.Education {
			line(e.StudyType, e.Area, e.Institution, DateRange(e.StartDate, e.EndDate, false))
			if e.GPA != "" {
				line("GPA: " + e.GPA)
			}
			if len(e.Courses) > 0 {
				line("Courses: " + strings.Join(e.Courses, ", "))
			}
		}
	}

	if len(doc.Skills) > 0 {
		heading("Skills")
		for _, s := range doc.Skills {
			entry := s.Name
			if s.Level != "" {
				entry += " (" + s.Level + ")"
			}
			if len(s.Keywords) > 0 {
				entry += ": " + strings.Join(s.Keywords, ", ")
			}
			line(entry)
		}
	}

	if len(doc.Projects) > 0 {
		heading("Projects")
		for _, p := range doc.Projects {
			line(p.Name, p.URL, DateRange(p.StartDate, p.EndDate, true))
			line(p.Description)
			bullets(p.Highlights)
		}
	}

	if len(doc.Awards) > 0 {
		heading("Awards")
		for _, a := range doc.Awards {
			line(a.Title, a.Awarder, FormatDate(a.Date))
			line(a.Summary)
		}
	}

	if len(doc.Languages) > 0 {
		heading("Languages")
		for _, l := range doc.Languages {
			line(l.Language, l.Fluency)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

