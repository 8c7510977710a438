package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/applications"
	"jobdocs-backend/internal/artifacts"
	"jobdocs-backend/internal/generation"
	"jobdocs-backend/internal/jobs"
	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/research"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]llm.ErrorKind
	provider map[string]string
	hook     func(docType string)
	panicOn  string
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) generation.Result {
	f.mu.Lock()
	f.calls = append(f.calls, req.DocumentType)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(req.DocumentType)
	}
	if req.DocumentType == f.panicOn {
		panic("boom")
	}
	if kind, ok := f.failures[req.DocumentType]; ok {
		return generation.Result{ErrorKind: kind, Error: "failed", Cost: decimal.Zero}
	}
	provider := "groq"
	if p, ok := f.provider[req.DocumentType]; ok {
		provider = p
	}
	return generation.Result{
		Success:        true,
		Content:        "content for " + req.DocumentType,
		Provider:       provider,
		Model:          "model-" + provider,
		TokensUsed:     100,
		Cost:           decimal.RequireFromString("0.01"),
		GenerationTime: 20 * time.Millisecond,
	}
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeResearcher struct {
	calls int
	saved []research.Record
	rec   research.Record
}

func (f *fakeResearcher) Run(ctx context.Context, applicationID int64, companyName, jobTitle string) research.Record {
	f.calls++
	rec := f.rec
	rec.ApplicationID = applicationID
	rec.CompanyName = companyName
	return rec
}

func (f *fakeResearcher) Save(ctx context.Context, rec research.Record) error {
	f.saved = append(f.saved, rec)
	return nil
}

type failingWriter struct{}

func (failingWriter) Save(ctx context.Context, a artifacts.Artifact) (artifacts.Artifact, error) {
	return artifacts.Artifact{}, errors.New("disk full")
}

func (failingWriter) List(ctx context.Context, applicationID int64) ([]artifacts.Artifact, error) {
	return nil, nil
}

type fixture struct {
	svc       *Service
	apps      *applications.MemoryRepo
	jobs      *jobs.MemoryRepo
	artifacts *artifacts.MemoryRepo
	gen       *fakeGenerator
	research  *fakeResearcher
	app       applications.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	apps := applications.NewMemoryRepo()
	app := apps.Put(applications.Application{
		UserID:          "user-1",
		CompanyName:     "Acme",
		JobTitle:        "Engineer",
		JobRequirements: "Go",
	})
	apps.PutProfile(applications.Profile{UserID: "user-1", Name: "Ada Lovelace", Skills: "Go, SQL"})

	jobRepo := jobs.NewMemoryRepo()
	artifactRepo := artifacts.NewMemoryRepo()
	gen := &fakeGenerator{failures: map[string]llm.ErrorKind{}, provider: map[string]string{}}
	researcher := &fakeResearcher{rec: research.Record{
		Source:        research.SourceAIKnowledge,
		Overview:      "Acme builds rockets.",
		TalkingPoints: "Reusable rockets",
		TokensUsed:    50,
		Cost:          decimal.RequireFromString("0.02"),
	}}

	var (
		clockMu sync.Mutex
		clock   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		seq     = 0
	)
	svc := NewService(apps, jobRepo, gen, researcher, artifacts.NewWriter(artifactRepo, nil), 2)
	svc.Now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	svc.NewID = func() string {
		seq++
		return fmt.Sprintf("job-%d", seq)
	}
	return &fixture{
		svc:       svc,
		apps:      apps,
		jobs:      jobRepo,
		artifacts: artifactRepo,
		gen:       gen,
		research:  researcher,
		app:       app,
	}
}

func TestGenerateAllCompletesJob(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", summary.Status)
	}
	if summary.DocumentsGenerated != len(artifacts.GeneratedTypes) {
		t.Fatalf("expected %d documents, got %d", len(artifacts.GeneratedTypes), summary.DocumentsGenerated)
	}
	if summary.TotalTokens != 700 {
		t.Fatalf("research tokens must not count, got %d", summary.TotalTokens)
	}
	if !summary.TotalCost.Equal(decimal.RequireFromString("0.07")) {
		t.Fatalf("unexpected total cost %s", summary.TotalCost)
	}
	if summary.Research == nil || summary.Research.Source != research.SourceAIKnowledge || !summary.Research.Persisted {
		t.Fatalf("unexpected research outcome %+v", summary.Research)
	}
	if len(f.research.saved) != 1 || f.research.saved[0].ApplicationID != f.app.ID {
		t.Fatalf("expected research stored once, got %+v", f.research.saved)
	}

	job, err := f.jobs.Get(context.Background(), summary.JobID)
	if err != nil {
		t.Fatalf("Get job: %v", err)
	}
	if job.Status != jobs.StatusCompleted || job.CompletedAt == nil || job.StartedAt == nil {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.DocumentsGenerated != 7 || job.TotalTokens != 700 || job.ProviderUsed != "groq" {
		t.Fatalf("unexpected job totals %+v", job)
	}

	list, err := f.artifacts.List(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 8 {
		t.Fatalf("expected 7 documents plus research, got %d", len(list))
	}
	stored, err := f.artifacts.Get(context.Background(), f.app.ID, artifacts.TypeCompanyResearch)
	if err != nil {
		t.Fatalf("Get research artifact: %v", err)
	}
	if stored.Provider != "research:ai_knowledge_base" {
		t.Fatalf("unexpected research provider %q", stored.Provider)
	}
}

func TestGenerateAllTwiceKeepsOneArtifactPerType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GenerateAll(ctx, f.app.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.svc.GenerateAll(ctx, f.app.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	list, err := f.artifacts.List(ctx, f.app.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	seen := map[artifacts.DocumentType]int{}
	for _, a := range list {
		seen[a.DocumentType]++
	}
	for docType, n := range seen {
		if n != 1 {
			t.Fatalf("expected one %s artifact, got %d", docType, n)
		}
	}
	latest, err := f.svc.LatestJob(ctx, f.app.ID)
	if err != nil {
		t.Fatalf("LatestJob: %v", err)
	}
	if latest.ID != second.JobID {
		t.Fatalf("expected latest job %s, got %s", second.JobID, latest.ID)
	}
}

func TestGenerateAllPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.gen.failures["video_script"] = llm.KindTimeout
	f.gen.failures["skills_analysis"] = llm.KindRateLimited

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.Status != jobs.StatusCompleted || summary.DocumentsGenerated != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, doc := range summary.Documents {
		switch doc.DocumentType {
		case artifacts.TypeVideoScript:
			if doc.Success || doc.ErrorKind != llm.KindTimeout || doc.Persisted {
				t.Fatalf("unexpected video_script outcome %+v", doc)
			}
		case artifacts.TypeResume:
			if !doc.Success || !doc.Persisted {
				t.Fatalf("unexpected resume outcome %+v", doc)
			}
		}
	}
	if _, err := f.artifacts.Get(context.Background(), f.app.ID, artifacts.TypeVideoScript); !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("failed type must not be persisted, got %v", err)
	}
}

func TestGenerateAllAllFailuresStillCompletes(t *testing.T) {
	f := newFixture(t)
	for _, docType := range artifacts.GeneratedTypes {
		f.gen.failures[string(docType)] = llm.KindProvider
	}

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.Status != jobs.StatusCompleted || summary.DocumentsGenerated != 0 || summary.ProviderUsed != "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !summary.TotalCost.IsZero() {
		t.Fatalf("expected zero cost, got %s", summary.TotalCost)
	}
}

func TestGenerateAllProviderUsedIsLastSuccess(t *testing.T) {
	f := newFixture(t)
	f.gen.provider["followup_schedule"] = "openrouter"
	f.gen.failures["skills_analysis"] = llm.KindProvider

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.ProviderUsed != "openrouter" {
		t.Fatalf("expected openrouter, got %q", summary.ProviderUsed)
	}
}

func TestGenerateAllApplicationMissing(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.GenerateAll(context.Background(), 999)
	if !errors.Is(err, ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
	if summary.Status != jobs.StatusFailed {
		t.Fatalf("expected failed summary, got %s", summary.Status)
	}
	job, err := f.jobs.Get(context.Background(), summary.JobID)
	if err != nil {
		t.Fatalf("Get job: %v", err)
	}
	if job.Status != jobs.StatusFailed || job.ErrorMessage == "" || job.CompletedAt == nil {
		t.Fatalf("unexpected failed job %+v", job)
	}
	if f.gen.callCount() != 0 {
		t.Fatalf("generator must not run, got %d calls", f.gen.callCount())
	}
}

func TestGenerateAllMissingProfileUsesDefaults(t *testing.T) {
	f := newFixture(t)
	app := f.apps.Put(applications.Application{UserID: "nobody", CompanyName: "Initech", JobTitle: "Analyst"})

	summary, err := f.svc.GenerateAll(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.DocumentsGenerated != 7 {
		t.Fatalf("expected all documents, got %d", summary.DocumentsGenerated)
	}
}

func TestGenerateAllOrphanedJob(t *testing.T) {
	f := newFixture(t)
	var once sync.Once
	f.gen.hook = func(string) {
		once.Do(func() {
			_ = f.jobs.Delete(context.Background(), "job-1")
		})
	}

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("orphaned job should not error, got %v", err)
	}
	if !summary.Orphaned {
		t.Fatalf("expected orphaned summary")
	}
	list, _ := f.artifacts.List(context.Background(), f.app.ID)
	if len(list) != 0 {
		t.Fatalf("orphaned batch must not persist, got %d artifacts", len(list))
	}
	if len(f.research.saved) != 0 {
		t.Fatalf("orphaned batch must not store research, got %d records", len(f.research.saved))
	}
}

func TestGenerateAllOrphanedJobSkipsResearchStore(t *testing.T) {
	f := newFixture(t)
	store := research.NewMemoryStore()
	f.svc.Research = research.NewPipeline(nil, nil, store, 0)
	var once sync.Once
	f.gen.hook = func(string) {
		once.Do(func() {
			_ = f.jobs.Delete(context.Background(), "job-1")
		})
	}

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if !summary.Orphaned {
		t.Fatalf("expected orphaned summary")
	}
	if _, err := store.Get(context.Background(), f.app.ID); !errors.Is(err, research.ErrNotFound) {
		t.Fatalf("expected no stored research, got %v", err)
	}
}

func TestGenerateAllSurvivesCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.svc.GenerateAll(ctx, f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", summary.Status)
	}
}

func TestGenerateAllRecoversDocumentPanic(t *testing.T) {
	f := newFixture(t)
	f.gen.panicOn = "cover_letter"

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.DocumentsGenerated != 6 {
		t.Fatalf("expected 6 documents, got %d", summary.DocumentsGenerated)
	}
}

func TestGenerateAllPersistFailureDoesNotFailJob(t *testing.T) {
	f := newFixture(t)
	f.svc.Artifacts = failingWriter{}

	summary, err := f.svc.GenerateAll(context.Background(), f.app.ID)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if summary.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", summary.Status)
	}
	for _, doc := range summary.Documents {
		if doc.Persisted {
			t.Fatalf("expected nothing persisted, got %+v", doc)
		}
	}
}

func TestRegenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.Regenerate(ctx, f.app.ID, "cover_letter")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if !out.Success || !out.Persisted || out.DocumentType != artifacts.TypeCoverLetter {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if _, err := f.jobs.LatestForApplication(ctx, f.app.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("regenerate must not create a job, got %v", err)
	}

	out, err = f.svc.Regenerate(ctx, f.app.ID, "company_research")
	if err != nil {
		t.Fatalf("Regenerate research: %v", err)
	}
	if out.Provider != "research:ai_knowledge_base" || f.research.calls != 1 {
		t.Fatalf("unexpected research outcome %+v", out)
	}

	if _, err := f.svc.Regenerate(ctx, f.app.ID, "haiku"); !errors.Is(err, ErrUnknownDocumentType) {
		t.Fatalf("expected ErrUnknownDocumentType, got %v", err)
	}
	if _, err := f.svc.Regenerate(ctx, 999, "resume"); !errors.Is(err, ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	outcomes := []Outcome{
		{Success: true, Provider: "groq", TokensUsed: 10, Cost: decimal.RequireFromString("0.001")},
		{Success: false, Provider: "openrouter", TokensUsed: 99, Cost: decimal.RequireFromString("1")},
		{Success: true, Provider: "openrouter", TokensUsed: 5, Cost: decimal.RequireFromString("0.002")},
	}
	provider, tokens, cost, generated := aggregate(outcomes)
	if provider != "openrouter" || tokens != 15 || generated != 2 {
		t.Fatalf("unexpected aggregate %s %d %d", provider, tokens, generated)
	}
	if !cost.Equal(decimal.RequireFromString("0.003")) {
		t.Fatalf("unexpected cost %s", cost)
	}
}
