package resume

import (
	"slices"
	"time"
)

// TimestampLayout 与浏览器 Date.toISOString 输出一致（UTC，毫秒精度）。
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp 将时间格式化为 lastModified 的字符串形式。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析 lastModified，兼容任意 RFC3339 精度。
func ParseTimestamp(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// New 返回默认的空简历。
func New(now time.Time) Document {
	return Document{
		Basics: Basics{
			Profiles: []Profile{},
		},
		Work:      []WorkEntry{},
		Education: []EducationEntry{},
		Skills:    []SkillEntry{},
		Projects:  []ProjectEntry{},
		Awards:    []AwardEntry{},
		Languages: []LanguageEntry{},
		Metadata: Metadata{
			LastModified: FormatTimestamp(now),
			Template:     TemplateModern,
			FontFamily:   DefaultFontFamily,
		},
	}
}

func NewWorkEntry(id string) WorkEntry {
	return WorkEntry{ID: id, Highlights: []string{}}
}

func NewEducationEntry(id string) EducationEntry {
	return EducationEntry{ID: id, Courses: []string{}}
}

func NewSkillEntry(id string) SkillEntry {
	return SkillEntry{ID: id, Keywords: []string{}}
}

func NewProjectEntry(id string) ProjectEntry {
	return ProjectEntry{ID: id, Highlights: []string{}}
}

func NewAwardEntry(id string) AwardEntry {
	return AwardEntry{ID: id}
}

func NewLanguageEntry(id string) LanguageEntry {
	return LanguageEntry{ID: id}
}

// Normalize 把 nil 切片统一为空切片，使 JSON 中不会出现 null。字符串字段保持原值。
func (d *Document) Normalize() {
	if d.Basics.Profiles == nil {
		d.Basics.Profiles = []Profile{}
	}
	if d.Work == nil {
		d.Work = []WorkEntry{}
	}
	for i := range d.Work {
		d.Work[i].Highlights = nonNil(d.Work[i].Highlights)
	}
	if d.Education == nil {
		d.Education = []EducationEntry{}
	}
	for i := range d.Education {
		d.Education[i].Courses = nonNil(d.Education[i].Courses)
	}
	if d.Skills == nil {
		d.Skills = []SkillEntry{}
	}
	for i := range d.Skills {
		d.Skills[i].Keywords = nonNil(d.Skills[i].Keywords)
	}
	if d.Projects == nil {
		d.Projects = []ProjectEntry{}
	}
	for i := range d.Projects {
		d.Projects[i].Highlights = nonNil(d.Projects[i].Highlights)
	}
	if d.Awards == nil {
		d.Awards = []AwardEntry{}
	}
	if d.Languages == nil {
		d.Languages = []LanguageEntry{}
	}
}

// Clone 深拷贝文档，调用方可随意修改返回值。
func (d Document) Clone() Document {
	out := d
	out.Basics.Profiles = slices.Clone(d.Basics.Profiles)

	out.Work = slices.Clone(d.Work)
	for i := range out.Work {
		out.Work[i].Highlights = slices.Clone(out.Work[i].Highlights)
	}
	out.Education = slices.Clone(d.Education)
	for i := range out.Education {
		out.Education[i].Courses = slices.Clone(out.Education[i].Courses)
	}
	out.Skills = slices.Clone(d.Skills)
	for i := range out.Skills {
		out.Skills[i].Keywords = slices.Clone(out.Skills[i].Keywords)
	}
	out.Projects = slices.Clone(d.Projects)
	for i := range out.Projects {
		out.Projects[i].Highlights = slices.Clone(out.Projects[i].Highlights)
	}
	out.Awards = slices.Clone(d.Awards)
	out.Languages = slices.Clone(d.Languages)
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
