package render

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"smartresume/internal/resume"
)

func sampleDoc() resume.Document {
	doc := resume.New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	w := resume.NewWorkEntry("w1")
	resume.WorkPatch{
		Company:   resume.String("Acme"),
		Position:  resume.String("Engineer"),
		StartDate: resume.String("2020-01-01"),
	}.Apply(&w)
	doc.Work = append(doc.Work, w)
	return doc
}

func TestRender_ModernScenario(t *testing.T) {
	out, err := Render(sampleDoc(), resume.TemplateModern)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Engineer", "Acme", "Jan 2020 - Present", "Your Name", ">Experience<"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
	for _, absent := range []string{"Education", "Summary", "Skills", "Projects", "Awards", "Languages"} {
		if strings.Contains(out, absent) {
			t.Fatalf("output should omit %q", absent)
		}
	}
}

func TestRender_ClassicHeaders(t *testing.T) {
	doc := sampleDoc()
	doc.Basics.Name = "Ada Lovelace"
	doc.Basics.Summary = "Analyst"

	out, err := Render(doc, resume.TemplateClassic)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"ADA LOVELACE", "Professional Summary", "Professional Experience", "Engineer, Acme"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}
}

func TestRender_IsPureAndDoesNotMutate(t *testing.T) {
	doc := sampleDoc()
	doc.Work[0].Highlights = nil
	before := doc.Clone()

	first, _ := Render(doc, resume.TemplateModern)
	second, _ := Render(doc, resume.TemplateModern)
	if first != second {
		t.Fatal("rendering is not deterministic")
	}
	classic, _ := Render(doc, resume.TemplateClassic)
	if classic == first {
		t.Fatal("templates should differ in layout")
	}
	if !reflect.DeepEqual(doc, before) {
		t.Fatal("render mutated the document")
	}
}

func TestRender_UnknownTemplateFallsBackToModern(t *testing.T) {
	doc := sampleDoc()
	modern, _ := Render(doc, resume.TemplateModern)
	for _, id := range []string{"", "fancy"} {
		out, err := Render(doc, id)
		if err != nil {
			t.Fatalf("render %q: %v", id, err)
		}
		if out != modern {
			t.Fatalf("template %q did not fall back to modern", id)
		}
	}
}

func TestRender_LocationRequiresCity(t *testing.T) {
	doc := sampleDoc()
	doc.Basics.Location = resume.Location{Region: "Bavaria", Country: "Germany"}
	out, _ := Render(doc, resume.TemplateModern)
	if strings.Contains(out, "Bavaria") {
		t.Fatal("location without city should be omitted")
	}

	doc.Basics.Location.City = "Munich"
	out, _ = Render(doc, resume.TemplateModern)
	if !strings.Contains(out, "Munich, Bavaria, Germany") {
		t.Fatal("expected full location line")
	}
}

func TestRender_EscapesUserContent(t *testing.T) {
	doc := sampleDoc()
	doc.Basics.Name = "<script>alert(1)</script>"
	out, _ := Render(doc, resume.TemplateModern)
	if strings.Contains(out, "<script>") {
		t.Fatal("user content was not escaped")
	}
}

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"2020-01-01":           "Jan 2020",
		"2021-07":              "Jul 2021",
		"2019-03-15T10:00:00Z": "Mar 2019",
		"06/30/2018":           "Jun 2018",
		"September 2017":       "Sep 2017",
		"2015":                 "Jan 2015",
		"sometime soon":        "sometime soon",
	}
	for in, want := range cases {
		if got := FormatDate(in); got != want {
			t.Errorf("FormatDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("classic") != "classic" || Normalize("nope") != DefaultTemplate {
		t.Fatal("unexpected normalization")
	}
	if len(Templates()) != 2 {
		t.Fatalf("unexpected templates %v", Templates())
	}
}

func TestPlainText(t *testing.T) {
	doc := sampleDoc()
	doc.Basics.Name = "Ada"
	doc.Basics.Email = "ada@example.com"
	doc.Work[0].Highlights = []string{"Shipped the engine"}
	doc.Skills = []resume.SkillEntry{{ID: "s1", Name: "Go", Keywords: []string{"gin", "gorm"}}}

	got := PlainText(doc)
	want := strings.Join([]string{
		"Ada",
		"ada@example.com",
		"",
		"EXPERIENCE",
		"Engineer | Acme | Jan 2020 - Present",
		"- Shipped the engine",
		"",
		"SKILLS",
		"Go: gin, gorm",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected plain text:\n%s\nwant:\n%s", got, want)
	}
}

func TestRender_EmptyEntriesOmitFields(t *testing.T) {
	doc := resume.New(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	doc.Work = []resume.WorkEntry{resume.NewWorkEntry("w1")}
	doc.Education = []resume.EducationEntry{resume.NewEducationEntry("e1")}
	doc.Skills = []resume.SkillEntry{resume.NewSkillEntry("s1")}
	doc.Projects = []resume.ProjectEntry{resume.NewProjectEntry("p1")}
	doc.Awards = []resume.AwardEntry{resume.NewAwardEntry("a1")}
	doc.Languages = []resume.LanguageEntry{resume.NewLanguageEntry("l1")}

	for _, id := range Templates() {
		out, err := Render(doc, id)
		if err != nil {
			t.Fatalf("render %s: %v", id, err)
		}
		for _, blank := range []string{"<h3></h3>", `<span class="strong"></span>`, "> - Present<", "> - <", `<div class="chip"></div>`, "<span></span>"} {
			if strings.Contains(out, blank) {
				t.Errorf("%s: output contains blank markup %q", id, blank)
			}
		}
	}

	if text := PlainText(doc); strings.Contains(text, "Present") || strings.Contains(text, " - ") {
		t.Errorf("plain text renders empty dates:\n%s", text)
	}
}

func TestDateRange(t *testing.T) {
	cases := []struct {
		start, end string
		ongoing    bool
		want       string
	}{
		{"", "", true, ""},
		{"2020-01", "", true, "Jan 2020 - Present"},
		{"2020-01", "", false, "Jan 2020"},
		{"", "2021-03", true, "Mar 2021"},
		{"2020-01", "2021-03", false, "Jan 2020 - Mar 2021"},
	}
	for _, tc := range cases {
		if got := DateRange(tc.start, tc.end, tc.ongoing); got != tc.want {
			t.Errorf("DateRange(%q, %q, %v) = %q, want %q", tc.start, tc.end, tc.ongoing, got, tc.want)
		}
	}
}

func TestRender_EmptyFontFamilyFallsBack(t *testing.T) {
	doc := sampleDoc()
	doc.Metadata.FontFamily = ""
	out, err := Render(doc, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, resume.DefaultFontFamily) {
		t.Fatal("default font not applied")
	}
	if doc.Metadata.FontFamily != "" {
		t.Fatal("document mutated")
	}
}
