package prompt

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"smartresume/internal/resume"
)

func testDoc() resume.Document {
	doc := resume.New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	doc.Basics.Name = "Ada"
	doc.Basics.Email = "ada@example.com"
	doc.Basics.Summary = "Engineer who ships."
	doc.Work = []resume.WorkEntry{
		{ID: "w1", Company: "Acme", Position: "Engineer", StartDate: "2020-01", Description: "Built things", Highlights: []string{}},
		{ID: "w2", Company: "Initech", Position: "Intern", Highlights: []string{}},
	}
	doc.Skills = []resume.SkillEntry{
		{ID: "s1", Name: "Go", Keywords: []string{}},
		{ID: "s2", Name: "SQL", Keywords: []string{}},
	}
	return doc
}

func TestSummary_UsesLatestWorkAndSkills(t *testing.T) {
	got, err := Summary(testDoc(), "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{
		"Name: Ada",
		"Current/Latest Position: Engineer",
		"Company: Acme",
		"Skills: Go, SQL",
		"Job Description: Not provided",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_EmptyDocument(t *testing.T) {
	got, err := Summary(resume.New(time.Now()), "Backend role")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(got, "Current/Latest Position: \n") || !strings.Contains(got, "Job Description: Backend role") {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestWorkDescription_OpenEndedPeriod(t *testing.T) {
	got, _ := WorkDescription(testDoc().Work[0], "")
	if !strings.Contains(got, "Time Period: 2020-01 to Present") {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestWorkHighlights_IncludesDescription(t *testing.T) {
	got, _ := WorkHighlights(testDoc().Work[0], "Go developer")
	if !strings.Contains(got, "Description: Built things") ||
		!strings.Contains(got, "Job Description (if applying for a specific role): Go developer") {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestJobMatch_ListsAllWork(t *testing.T) {
	got, _ := JobMatch(testDoc(), "We need Go")
	for _, want := range []string{
		"- Engineer at Acme: Built things",
		"- Intern at Initech: ",
		"Job Description:\nWe need Go",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestATS_KeywordsOnlyWithJobDescription(t *testing.T) {
	without, _ := ATS("resume text", "")
	if strings.Contains(without, "Job Description") || strings.Contains(without, "3. A list of key keywords") {
		t.Fatalf("unexpected job description block:\n%s", without)
	}
	with, _ := ATS("resume text", "Go role")
	if !strings.Contains(with, "Job Description:\nGo role") || !strings.Contains(with, "3. A list of key keywords") {
		t.Fatalf("missing job description block:\n%s", with)
	}
}

func TestCoverLetter(t *testing.T) {
	got, _ := CoverLetter(testDoc(), resume.JobDetails{Position: "Staff Engineer", Company: "Globex", ContactPerson: "Hank"})
	for _, want := range []string{"Position: Engineer\nCompany: Acme", "Position: Staff Engineer", "Company: Globex", "Contact Person: Hank"} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}

	empty, _ := CoverLetter(resume.New(time.Now()), resume.JobDetails{Position: "Dev", Company: "X"})
	if !strings.Contains(empty, "No experience provided") || strings.Contains(empty, "Contact Person") {
		t.Fatalf("unexpected prompt:\n%s", empty)
	}
}

func TestParseHighlights(t *testing.T) {
	in := "- Led a team of 5\n\n• Cut costs by 20%\r\n* Shipped v2\n1. Grew revenue\n2) Hired 3 engineers\n   \nPlain line"
	want := []string{"Led a team of 5", "Cut costs by 20%", "Shipped v2", "Grew revenue", "Hired 3 engineers", "Plain line"}
	if got := ParseHighlights(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := ParseHighlights("   \n"); len(got) != 0 {
		t.Fatalf("expected no highlights, got %q", got)
	}
}

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"score\":1}\n```": `{"score":1}`,
		"```\n{\"score\":2}```":       `{"score":2}`,
		"  {\"score\":3}  ":           `{"score":3}`,
	}
	for in, want := range cases {
		if got := CleanJSON(in); got != want {
			t.Errorf("CleanJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
