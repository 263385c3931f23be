package resume

import "slices"

// 以下 Patch 类型用于局部更新：nil 字段表示"未提供"，合并时保持原值。
// 切片字段一旦提供则整体替换。

type LocationPatch struct {
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	Region     *string `json:"region,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
	Country    *string `json:"country,omitempty"`
}

type BasicsPatch struct {
	Name     *string        `json:"name,omitempty"`
	Email    *string        `json:"email,omitempty" binding:"omitempty,email"`
	Phone    *string        `json:"phone,omitempty"`
	Website  *string        `json:"website,omitempty" binding:"omitempty,url"`
	Location *LocationPatch `json:"location,omitempty"`
	Profiles *[]Profile     `json:"profiles,omitempty"`
	Summary  *string        `json:"summary,omitempty"`
}

type WorkPatch struct {
	Company     *string   `json:"company,omitempty"`
	Position    *string   `json:"position,omitempty"`
	StartDate   *string   `json:"startDate,omitempty"`
	EndDate     *string   `json:"endDate,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Description *string   `json:"description,omitempty"`
	Highlights  *[]string `json:"highlights,omitempty"`
}

type EducationPatch struct {
	Institution *string   `json:"institution,omitempty"`
	Area        *string   `json:"area,omitempty"`
	StudyType   *string   `json:"studyType,omitempty"`
	StartDate   *string   `json:"startDate,omitempty"`
	EndDate     *string   `json:"endDate,omitempty"`
	GPA         *string   `json:"gpa,omitempty"`
	Courses     *[]string `json:"courses,omitempty"`
}

type SkillPatch struct {
	Name     *string   `json:"name,omitempty"`
	Level    *string   `json:"level,omitempty"`
	Keywords *[]string `json:"keywords,omitempty"`
}

type ProjectPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	StartDate   *string   `json:"startDate,omitempty"`
	EndDate     *string   `json:"endDate,omitempty"`
	URL         *string   `json:"url,omitempty" binding:"omitempty,url"`
	Highlights  *[]string `json:"highlights,omitempty"`
}

type AwardPatch struct {
	Title   *string `json:"title,omitempty"`
	Date    *string `json:"date,omitempty"`
	Awarder *string `json:"awarder,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

type LanguagePatch struct {
	Language *string `json:"language,omitempty"`
	Fluency  *string `json:"fluency,omitempty"`
}

// MetadataPatch 不包含 LastModified：该字段只由 Store 写入。
type MetadataPatch struct {
	Template   *string `json:"template,omitempty" binding:"omitempty,oneof=modern classic"`
	FontFamily *string `json:"fontFamily,omitempty"`
}

// Apply 将非 nil 字段合并进 Location。
func (p LocationPatch) Apply(l *Location) {
	set(&l.Address, p.Address)
	set(&l.City, p.City)
	set(&l.Region, p.Region)
	set(&l.PostalCode, p.PostalCode)
	set(&l.Country, p.Country)
}

func (p BasicsPatch) Apply(b *Basics) {
	set(&b.Name, p.Name)
	set(&b.Email, p.Email)
	set(&b.Phone, p.Phone)
	set(&b.Website, p.Website)
	if p.Location != nil {
		p.Location.Apply(&b.Location)
	}
	if p.Profiles != nil {
		b.Profiles = slices.Clone(*p.Profiles)
		if b.Profiles == nil {
			b.Profiles = []Profile{}
		}
	}
	set(&b.Summary, p.Summary)
}

func (p WorkPatch) Apply(e *WorkEntry) {
	set(&e.Company, p.Company)
	set(&e.Position, p.Position)
	set(&e.StartDate, p.StartDate)
	set(&e.EndDate, p.EndDate)
	set(&e.Location, p.Location)
	set(&e.Description, p.Description)
	setList(&e.Highlights, p.Highlights)
}

func (p EducationPatch) Apply(e *EducationEntry) {
	set(&e.Institution, p.Institution)
	set(&e.Area, p.Area)
	set(&e.StudyType, p.StudyType)
	set(&e.StartDate, p.StartDate)
	set(&e.EndDate, p.EndDate)
	set(&e.GPA, p.GPA)
	setList(&e.Courses, p.Courses)
}

func (p SkillPatch) Apply(e *SkillEntry) {
	set(&e.Name, p.Name)
	set(&e.Level, p.Level)
	setList(&e.Keywords, p.Keywords)
}

func (p ProjectPatch) Apply(e *ProjectEntry) {
	set(&e.Name, p.Name)
	set(&e.Description, p.Description)
	set(&e.StartDate, p.StartDate)
	set(&e.EndDate, p.EndDate)
	set(&e.URL, p.URL)
	setList(&e.Highlights, p.Highlights)
}

func (p AwardPatch) Apply(e *AwardEntry) {
	set(&e.Title, p.Title)
	set(&e.Date, p.Date)
	set(&e.Awarder, p.Awarder)
	set(&e.Summary, p.Summary)
}

func (p LanguagePatch) Apply(e *LanguageEntry) {
	set(&e.Language, p.Language)
	set(&e.Fluency, p.Fluency)
}

func (p MetadataPatch) Apply(m *Metadata) {
	set(&m.Template, p.Template)
	set(&m.FontFamily, p.FontFamily)
}

// String 返回字符串指针，方便构造 Patch。
func String(v string) *string {
	return &v
}

// Strings 返回切片指针，方便构造 Patch。
func Strings(v ...string) *[]string {
	if v == nil {
		v = []string{}
	}
	return &v
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setList(dst *[]string, v *[]string) {
	if v == nil {
		return
	}
	*dst = slices.Clone(*v)
	if *dst == nil {
		*dst = []string{}
	}
}
