package resume

// Document 是会话内唯一的简历根聚合，JSON 字段名与浏览器端保持一致。
type Document struct {
	Basics    Basics           `json:"basics"`
	Work      []WorkEntry      `json:"work"`
	Education []EducationEntry `json:"education"`
	Skills    []SkillEntry     `json:"skills"`
	Projects  []ProjectEntry   `json:"projects"`
	Awards    []AwardEntry     `json:"awards"`
	Languages []LanguageEntry  `json:"languages"`
	Metadata  Metadata         `json:"metadata"`
}

// Basics 描述简历头部的个人信息。
type Basics struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Website  string    `json:"website,omitempty"`
	Location Location  `json:"location"`
	Profiles []Profile `json:"profiles"`
	Summary  string    `json:"summary"`
}

// Location 仅 City 为必填，其余字段可为空。
type Location struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Profile 表示一个社交账号。
type Profile struct {
	Network  string `json:"network"`
	Username string `json:"username"`
	URL      string `json:"url"`
}

// WorkEntry 表示一段工作经历，EndDate 为空表示至今。
type WorkEntry struct {
	ID          string   `json:"id"`
	Company     string   `json:"company"`
	Position    string   `json:"position"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
}

// EducationEntry 表示一段教育经历。
type EducationEntry struct {
	ID          string   `json:"id"`
	Institution string   `json:"institution"`
	Area        string   `json:"area"`
	StudyType   string   `json:"studyType"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	GPA         string   `json:"gpa,omitempty"`
	Courses     []string `json:"courses"`
}

type SkillEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Level    string   `json:"level,omitempty"`
	Keywords []string `json:"keywords"`
}

type ProjectEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	URL         string   `json:"url,omitempty"`
	Highlights  []string `json:"highlights"`
}

type AwardEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Awarder string `json:"awarder"`
	Summary string `json:"summary"`
}

type LanguageEntry struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Fluency  string `json:"fluency"`
}

// Metadata 记录最近修改时间与展示偏好。
type Metadata struct {
	LastModified string `json:"lastModified"`
	Template     string `json:"template"`
	FontFamily   string `json:"fontFamily"`
}

// 模板标识。
const (
	TemplateModern  = "modern"
	TemplateClassic = "classic"
)

const DefaultFontFamily = "Inter"

// Section 是可重复分区的键。
type Section string

const (
	SectionWork      Section = "work"
	SectionEducation Section = "education"
	SectionSkills    Section = "skills"
	SectionProjects  Section = "projects"
	SectionAwards    Section = "awards"
	SectionLanguages Section = "languages"
)

// Sections 按编辑器中的顺序列出全部可重复分区。
var Sections = []Section{
	SectionWork,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionAwards,
	SectionLanguages,
}

// ParseSection 校验分区键。
func ParseSection(raw string) (Section, bool) {
	for _, s := range Sections {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// DefaultActiveSection 是编辑器初始打开的分区。
const DefaultActiveSection = "basics"
