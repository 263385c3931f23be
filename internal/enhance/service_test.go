package enhance

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"smartresume/internal/ai"
	"smartresume/internal/resume"
	"smartresume/internal/store"
)

type fakeCollaborator struct {
	reply    string
	analysis ai.Analysis
	err      error

	calls      int
	lastPrompt string
	lastResume string
	block      chan struct{}
}

func (f *fakeCollaborator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.block != nil {
		<-f.block
	}
	return f.reply, f.err
}

func (f *fakeCollaborator) AnalyzeCompatibility(_ context.Context, resumeText, _ string) (ai.Analysis, error) {
	f.calls++
	f.lastResume = resumeText
	return f.analysis, f.err
}

func (f *fakeCollaborator) GenerateCoverLetter(_ context.Context, _ resume.Document, job resume.JobDetails) (string, error) {
	f.calls++
	return f.reply + " " + job.Company, f.err
}

type staticCredential string

func (c staticCredential) Credential() string { return string(c) }

func newTestService(t *testing.T, key string, collab *fakeCollaborator) (*Service, *store.DocumentStore) {
	t.Helper()
	s, err := store.New(context.Background(), store.NewMemoryPersister(), "resume-storage")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	factory := func(context.Context, string) (ai.Collaborator, error) { return collab, nil }
	return NewService(s, staticCredential(key), factory, nil), s
}

func TestMissingCredential_ShortCircuits(t *testing.T) {
	ctx := context.Background()
	collab := &fakeCollaborator{reply: "x"}
	svc, st := newTestService(t, "", collab)
	before := st.Document()

	if _, err := svc.GenerateSummary(ctx, ""); !errors.Is(err, ai.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := svc.AnalyzeATS(ctx, "text", ""); !errors.Is(err, ai.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if collab.calls != 0 {
		t.Fatalf("collaborator called %d times", collab.calls)
	}
	if !reflect.DeepEqual(st.Document(), before) {
		t.Fatal("document changed")
	}
}

func TestGenerateSummary_UpdatesBasics(t *testing.T) {
	ctx := context.Background()
	collab := &fakeCollaborator{reply: "Seasoned engineer."}
	svc, st := newTestService(t, "sk-test", collab)
	_ = st.UpdateBasics(ctx, resume.BasicsPatch{Name: resume.String("Ada")})

	got, err := svc.GenerateSummary(ctx, "Go role")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got != "Seasoned engineer." || st.Document().Basics.Summary != got {
		t.Fatalf("summary not stored: %q", st.Document().Basics.Summary)
	}
	if !strings.Contains(collab.lastPrompt, "Name: Ada") {
		t.Fatalf("prompt missing name:\n%s", collab.lastPrompt)
	}
	if svc.Busy(ActionSummary) {
		t.Fatal("busy flag not cleared")
	}
}

func TestRemoteFailure_LeavesDocumentUntouched(t *testing.T) {
	ctx := context.Background()
	collab := &fakeCollaborator{err: errors.New("timeout")}
	svc, st := newTestService(t, "sk-test", collab)
	id, _ := st.AddWork(ctx)
	before := st.Document()

	if _, err := svc.GenerateWorkDescription(ctx, id, ""); err == nil {
		t.Fatal("expected error")
	}
	if _, err := svc.GenerateWorkHighlights(ctx, id, ""); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(st.Document(), before) {
		t.Fatal("document changed after failed call")
	}
	for _, a := range Actions {
		if svc.Busy(a) {
			t.Fatalf("busy flag %s not cleared", a)
		}
	}
}

func TestGenerateWorkHighlights_ParsesBullets(t *testing.T) {
	ctx := context.Background()
	collab := &fakeCollaborator{reply: "- Led migration\n• Cut latency by 30%\n\n"}
	svc, st := newTestService(t, "sk-test", collab)
	id, _ := st.AddWork(ctx)
	_ = st.UpdateWork(ctx, id, resume.WorkPatch{Company: resume.String("Acme")})

	got, err := svc.GenerateWorkHighlights(ctx, id, "")
	if err != nil {
		t.Fatalf("highlights: %v", err)
	}
	want := []string{"Led migration", "Cut latency by 30%"}
	if !reflect.DeepEqual(got, want) || !reflect.DeepEqual(st.Document().Work[0].Highlights, want) {
		t.Fatalf("unexpected highlights %q", st.Document().Work[0].Highlights)
	}
	if st.Document().Work[0].Company != "Acme" {
		t.Fatal("other fields changed")
	}
}

func TestGenerateWorkDescription_UnknownEntry(t *testing.T) {
	collab := &fakeCollaborator{reply: "x"}
	svc, _ := newTestService(t, "sk-test", collab)

	if _, err := svc.GenerateWorkDescription(context.Background(), "missing", ""); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if collab.calls != 0 {
		t.Fatal("collaborator should not be called")
	}
}

func TestJobMatch_RequiresJobDescription(t *testing.T) {
	collab := &fakeCollaborator{reply: "Emphasize Go"}
	svc, _ := newTestService(t, "sk-test", collab)

	if _, err := svc.JobMatch(context.Background(), "  "); !errors.Is(err, ErrJobDescriptionRequired) {
		t.Fatalf("expected ErrJobDescriptionRequired, got %v", err)
	}
	got, err := svc.JobMatch(context.Background(), "Go developer")
	if err != nil || got != "Emphasize Go" {
		t.Fatalf("job match: %q %v", got, err)
	}
}

func TestAnalyzeATS_FallsBackToDocumentText(t *testing.T) {
	ctx := context.Background()
	collab := &fakeCollaborator{analysis: ai.Analysis{Score: 80, Suggestions: []string{"ok"}}}
	svc, st := newTestService(t, "sk-test", collab)
	_ = st.UpdateBasics(ctx, resume.BasicsPatch{Name: resume.String("Ada Lovelace")})

	a, err := svc.AnalyzeATS(ctx, "", "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Score != 80 || !strings.Contains(collab.lastResume, "Ada Lovelace") {
		t.Fatalf("unexpected analysis %+v resume=%q", a, collab.lastResume)
	}
}

func TestGenerateCoverLetter_RequiresDetails(t *testing.T) {
	collab := &fakeCollaborator{reply: "Dear team at"}
	svc, _ := newTestService(t, "sk-test", collab)

	if _, err := svc.GenerateCoverLetter(context.Background(), resume.JobDetails{Position: "Dev"}); !errors.Is(err, ErrMissingJobDetails) {
		t.Fatalf("expected ErrMissingJobDetails, got %v", err)
	}
	got, err := svc.GenerateCoverLetter(context.Background(), resume.JobDetails{Position: "Dev", Company: "Globex"})
	if err != nil || got != "Dear team at Globex" {
		t.Fatalf("cover letter: %q %v", got, err)
	}
}

func TestBusy_TracksInFlightCalls(t *testing.T) {
	collab := &fakeCollaborator{reply: "done", block: make(chan struct{})}
	svc, _ := newTestService(t, "sk-test", collab)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.JobMatch(context.Background(), "Go")
		errCh <- err
	}()

	for !svc.Busy(ActionJobMatch) {
		select {
		case err := <-errCh:
			t.Fatalf("call finished early: %v", err)
		default:
		}
	}
	if svc.Busy(ActionSummary) {
		t.Fatal("unrelated action marked busy")
	}
	close(collab.block)
	if err := <-errCh; err != nil {
		t.Fatalf("job match: %v", err)
	}
	if svc.Busy(ActionJobMatch) {
		t.Fatal("busy flag not cleared")
	}
}

func TestCoverLetterFilename(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":         "Cover_Letter_Acme_Corp.txt",
		"Big   Tech \t Inc": "Cover_Letter_Big_Tech_Inc.txt",
		"Solo":              "Cover_Letter_Solo.txt",
	}
	for in, want := range cases {
		if got := CoverLetterFilename(in); got != want {
			t.Errorf("CoverLetterFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
