package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/generation"
	"jobdocs-backend/internal/llm"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	results map[string][]SearchResult
	errs    map[string]error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []generation.Request
	respond  func(req generation.Request) generation.Result
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) generation.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, rec Record) error { return errors.New("db down") }
func (failingStore) Get(ctx context.Context, applicationID int64) (Record, error) {
	return Record{}, ErrNotFound
}

var fixedNow = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func newTestPipeline(search Searcher, gen generation.Generator, store Store) *Pipeline {
	p := NewPipeline(search, gen, store, 0)
	p.Now = func() time.Time { return fixedNow }
	return p
}

const liveAnalysis = `COMPANY OVERVIEW
Acme builds rockets.

RECENT DEVELOPMENTS
- Series C

INTERVIEW TALKING POINTS
- Reliability work

SMART QUESTIONS TO ASK
1. How do you measure success?

INDUSTRY CONTEXT
Launch costs are falling.`

const knowledgeAnalysis = `1. COMPANY OVERVIEW
Acme is an aerospace company.

2. GENERAL TALKING POINTS
- Mission focus

3. TYPICAL QUESTIONS TO ASK
- What are the team's goals?

4. INDUSTRY INSIGHTS
Competition is intense.

5. PREPARATION TIPS
Read their blog.`

func TestResearchLiveSearch(t *testing.T) {
	search := &fakeSearcher{results: map[string][]SearchResult{
		"Acme company news 2025 2026": {{Title: "Acme raises", Snippet: "Series C", Link: "https://news.example/acme"}},
	}}
	gen := &fakeGenerator{respond: func(req generation.Request) generation.Result {
		return generation.Result{Success: true, Content: liveAnalysis, Provider: "groq", TokensUsed: 120, Cost: decimal.RequireFromString("0.0000708")}
	}}
	store := NewMemoryStore()
	p := newTestPipeline(search, gen, store)

	rec := p.Research(context.Background(), 42, "Acme", "Engineer")

	if rec.Source != SourceLiveSearch || !rec.Succeeded() {
		t.Fatalf("expected live search record, got %+v", rec)
	}
	if rec.Overview != "Acme builds rockets." || rec.Questions != "1. How do you measure success?" {
		t.Fatalf("unexpected sections: %+v", rec)
	}
	if rec.Provider != "groq" || rec.TokensUsed != 120 {
		t.Fatalf("expected generation metadata, got %+v", rec)
	}
	if len(search.queries) != 4 {
		t.Fatalf("expected 4 queries with a job title, got %v", search.queries)
	}
	if len(gen.requests) != 1 || gen.requests[0].DocumentType != documentType {
		t.Fatalf("expected one analysis request, got %+v", gen.requests)
	}
	if !strings.Contains(gen.requests[0].Prompt, "Series C") {
		t.Fatalf("expected snippets in prompt, got %s", gen.requests[0].Prompt)
	}

	stored, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Source != SourceLiveSearch || stored.CompanyName != "Acme" || !stored.ResearchedAt.Equal(fixedNow) {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestResearchEmptySearchFallsBackToKnowledge(t *testing.T) {
	search := &fakeSearcher{errs: map[string]error{
		"Acme about company culture values": errors.New("503"),
	}}
	gen := &fakeGenerator{respond: func(req generation.Request) generation.Result {
		return generation.Result{Success: true, Content: knowledgeAnalysis, Provider: "openrouter", TokensUsed: 80}
	}}
	p := newTestPipeline(search, gen, NewMemoryStore())

	rec := p.Research(context.Background(), 7, "Acme", "")

	if rec.Source != SourceAIKnowledge {
		t.Fatalf("expected ai_knowledge_base, got %s", rec.Source)
	}
	if rec.RecentNews != limitedRecentNews {
		t.Fatalf("expected limited news caveat, got %q", rec.RecentNews)
	}
	if rec.TalkingPoints != "- Mission focus" || rec.IndustryContext != "Competition is intense." {
		t.Fatalf("unexpected sections: %+v", rec)
	}
	if len(search.queries) != 3 {
		t.Fatalf("expected 3 queries without a job title, got %v", search.queries)
	}
	if len(gen.requests) != 1 || gen.requests[0].DocumentType != fallbackType {
		t.Fatalf("expected only the knowledge request, got %+v", gen.requests)
	}
}

func TestResearchAllTiersFailReturnsGeneric(t *testing.T) {
	search := &fakeSearcher{results: map[string][]SearchResult{
		"Acme recent developments hiring": {{Title: "Acme hiring"}},
	}}
	gen := &fakeGenerator{respond: func(req generation.Request) generation.Result {
		return generation.Result{Success: false, ErrorKind: llm.KindTimeout, Error: "timeout"}
	}}
	store := NewMemoryStore()
	p := newTestPipeline(search, gen, store)

	first := p.Research(context.Background(), 9, "Acme", "Engineer")
	second := p.Research(context.Background(), 9, "Acme", "Engineer")

	if first.Source != SourceGeneric || first.Succeeded() {
		t.Fatalf("expected generic record, got %+v", first)
	}
	want := Generic("Acme", "Engineer")
	if first.Overview != want.Overview || first.TalkingPoints != want.TalkingPoints {
		t.Fatalf("generic record should be deterministic: %+v", first)
	}
	if first.Overview != second.Overview || first.Questions != second.Questions || first.Source != second.Source {
		t.Fatalf("expected identical generic output, got %+v and %+v", first, second)
	}
	if !strings.Contains(first.TalkingPoints, "Engineer role") {
		t.Fatalf("expected job title in talking points, got %q", first.TalkingPoints)
	}
	if len(gen.requests) != 4 {
		t.Fatalf("expected analysis and knowledge attempts per run, got %d", len(gen.requests))
	}
	if _, err := store.Get(context.Background(), 9); err != nil {
		t.Fatalf("generic record should be stored: %v", err)
	}
}

func TestResearchWithoutSearchClient(t *testing.T) {
	gen := &fakeGenerator{respond: func(req generation.Request) generation.Result {
		return generation.Result{Success: true, Content: knowledgeAnalysis, Provider: "groq"}
	}}
	p := newTestPipeline(nil, gen, NewMemoryStore())

	rec := p.Research(context.Background(), 1, "Acme", "Engineer")
	if rec.Source != SourceAIKnowledge {
		t.Fatalf("expected ai_knowledge_base without search, got %s", rec.Source)
	}
}

func TestResearchPersistFailureStillReturnsRecord(t *testing.T) {
	p := newTestPipeline(nil, nil, failingStore{})

	rec := p.Research(context.Background(), 3, "Acme", "Engineer")
	if rec.Source != SourceGeneric || rec.ApplicationID != 3 {
		t.Fatalf("expected generic record, got %+v", rec)
	}
}

func TestCollectStopsOnCancel(t *testing.T) {
	search := &fakeSearcher{}
	p := newTestPipeline(search, nil, nil)
	p.QueryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.collect(ctx, []string{"a", "b", "c"}, map[string]any{})

	if len(search.queries) != 1 {
		t.Fatalf("expected only the first query before cancellation, got %v", search.queries)
	}
}

func TestQueries(t *testing.T) {
	got := Queries("Acme", "Engineer", fixedNow)
	want := []string{
		"Acme company news 2025 2026",
		"Acme about company culture values",
		"Acme recent developments hiring",
		"Acme Engineer job requirements",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d queries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("query %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFormatReport(t *testing.T) {
	rec := Generic("Acme", "Engineer")
	rec.ResearchedAt = fixedNow
	report := FormatReport(rec)

	if !strings.HasPrefix(report, "COMPANY RESEARCH REPORT\nCompany: Acme\nResearch Date: 2026-10-19 08:30\n") {
		t.Fatalf("unexpected header: %s", report)
	}
	for _, heading := range []string{"COMPANY OVERVIEW", "RECENT DEVELOPMENTS", "INTERVIEW TALKING POINTS", "QUESTIONS TO ASK", "INDUSTRY CONTEXT"} {
		if !strings.Contains(report, "\n"+heading+"\n") {
			t.Fatalf("missing %s in report", heading)
		}
	}
}

func TestRunDoesNotStore(t *testing.T) {
	store := NewMemoryStore()
	p := newTestPipeline(nil, nil, store)

	rec := p.Run(context.Background(), 5, "Acme", "Engineer")
	if rec.Source != SourceGeneric || rec.ApplicationID != 5 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := store.Get(context.Background(), 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Run must not store, got %v", err)
	}

	if err := p.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, err := store.Get(context.Background(), 5); err != nil || got.Source != SourceGeneric {
		t.Fatalf("expected stored record, got %+v %v", got, err)
	}
}
