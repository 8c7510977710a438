package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/generation"
	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/shared/metrics"
	"jobdocs-backend/internal/shared/telemetry"
)

const (
	documentType      = "company_research"
	fallbackType      = "company_research_fallback"
	systemUserID      = "system"
	limitedRecentNews = "Limited recent information available"
	defaultQueryDelay = 500 * time.Millisecond
)

// Pipeline researches a company through live search, then model knowledge,
// then a generic template. Research never fails; the last tier always answers.
type Pipeline struct {
	Search     Searcher
	Generator  generation.Generator
	Store      Store
	QueryDelay time.Duration
	Now        func() time.Time
}

// NewPipeline wires a Pipeline. search may be nil when no search key is configured.
func NewPipeline(search Searcher, generator generation.Generator, store Store, queryDelay time.Duration) *Pipeline {
	if queryDelay < 0 {
		queryDelay = defaultQueryDelay
	}
	return &Pipeline{
		Search:     search,
		Generator:  generator,
		Store:      store,
		QueryDelay: queryDelay,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// Research produces and stores a research record for an application.
func (p *Pipeline) Research(ctx context.Context, applicationID int64, companyName, jobTitle string) Record {
	rec := p.Run(ctx, applicationID, companyName, jobTitle)
	if err := p.Save(ctx, rec); err != nil {
		telemetry.Error("research.persist_failed", map[string]any{
			"application_id": applicationID,
			"company":        rec.CompanyName,
			"error":          err.Error(),
		})
	}
	return rec
}

// Save stores a research record. It is a no-op without a store.
func (p *Pipeline) Save(ctx context.Context, rec Record) error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Upsert(ctx, rec)
}

// Run walks the research tiers and returns the record without storing it.
func (p *Pipeline) Run(ctx context.Context, applicationID int64, companyName, jobTitle string) Record {
	companyName = strings.TrimSpace(companyName)
	jobTitle = strings.TrimSpace(jobTitle)
	fields := map[string]any{
		"application_id": applicationID,
		"company":        companyName,
	}

	rec, ok := p.liveSearch(ctx, companyName, jobTitle, fields)
	if !ok {
		telemetry.Warn("research.live_search.unavailable", fields)
		rec, ok = p.knowledgeBase(ctx, companyName, jobTitle, fields)
	}
	if !ok {
		telemetry.Warn("research.ai_fallback.failed", fields)
		rec = Generic(companyName, jobTitle)
	}

	rec.ApplicationID = applicationID
	rec.CompanyName = companyName
	rec.ResearchedAt = p.now()
	metrics.IncResearch(string(rec.Source))

	telemetry.Info("research.completed", mergeFields(fields, map[string]any{
		"source":      string(rec.Source),
		"tokens_used": rec.TokensUsed,
	}))
	return rec
}

// Get returns stored research for an application.
func (p *Pipeline) Get(ctx context.Context, applicationID int64) (Record, error) {
	return p.Store.Get(ctx, applicationID)
}

func (p *Pipeline) liveSearch(ctx context.Context, companyName, jobTitle string, fields map[string]any) (Record, bool) {
	if p.Search == nil || p.Generator == nil {
		return Record{}, false
	}
	results := p.collect(ctx, Queries(companyName, jobTitle, p.now()), fields)
	if len(results) == 0 {
		return Record{}, false
	}

	res := p.Generator.Generate(ctx, generation.Request{
		Prompt:       llm.ResearchAnalysisPrompt(companyName, jobTitle, formatResults(results)),
		SystemPrompt: llm.SystemPrompt(documentType),
		DocumentType: documentType,
		UserID:       systemUserID,
	})
	if !res.Success {
		telemetry.Warn("research.analysis.failed", mergeFields(fields, map[string]any{
			"error_kind": string(res.ErrorKind),
			"error":      res.Error,
		}))
		return Record{}, false
	}
	return Record{
		Overview:        ExtractSection(res.Content, "COMPANY OVERVIEW"),
		RecentNews:      ExtractSection(res.Content, "RECENT DEVELOPMENTS"),
		TalkingPoints:   ExtractSection(res.Content, "INTERVIEW TALKING POINTS"),
		Questions:       ExtractSection(res.Content, "SMART QUESTIONS TO ASK"),
		IndustryContext: ExtractSection(res.Content, "INDUSTRY CONTEXT"),
		Source:          SourceLiveSearch,
		Provider:        res.Provider,
		TokensUsed:      res.TokensUsed,
		Cost:            res.Cost,
	}, true
}

func (p *Pipeline) knowledgeBase(ctx context.Context, companyName, jobTitle string, fields map[string]any) (Record, bool) {
	if p.Generator == nil {
		return Record{}, false
	}
	res := p.Generator.Generate(ctx, generation.Request{
		Prompt:       llm.ResearchKnowledgePrompt(companyName, jobTitle),
		SystemPrompt: llm.SystemPrompt(documentType),
		DocumentType: fallbackType,
		UserID:       systemUserID,
	})
	if !res.Success {
		telemetry.Warn("research.knowledge.failed", mergeFields(fields, map[string]any{
			"error_kind": string(res.ErrorKind),
			"error":      res.Error,
		}))
		return Record{}, false
	}
	return Record{
		Overview:        ExtractSection(res.Content, "COMPANY OVERVIEW"),
		RecentNews:      limitedRecentNews,
		TalkingPoints:   ExtractSection(res.Content, "GENERAL TALKING POINTS"),
		Questions:       ExtractSection(res.Content, "TYPICAL QUESTIONS TO ASK"),
		IndustryContext: ExtractSection(res.Content, "INDUSTRY INSIGHTS"),
		Source:          SourceAIKnowledge,
		Provider:        res.Provider,
		TokensUsed:      res.TokensUsed,
		Cost:            res.Cost,
	}, true
}

// collect runs each query in turn, skipping failures, with a delay between queries.
func (p *Pipeline) collect(ctx context.Context, queries []string, fields map[string]any) []SearchResult {
	var all []SearchResult
	for i, q := range queries {
		if i > 0 && p.QueryDelay > 0 {
			timer := time.NewTimer(p.QueryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return all
			case <-timer.C:
			}
		}
		results, err := p.Search.Search(ctx, q)
		if err != nil {
			telemetry.Warn("research.search.failed", mergeFields(fields, map[string]any{
				"query": q,
				"error": err.Error(),
			}))
			continue
		}
		all = append(all, results...)
	}
	return all
}

// Queries returns the search queries for a company, anchored to the current year.
func Queries(companyName, jobTitle string, now time.Time) []string {
	year := now.Year()
	queries := []string{
		fmt.Sprintf("%s company news %d %d", companyName, year-1, year),
		fmt.Sprintf("%s about company culture values", companyName),
		fmt.Sprintf("%s recent developments hiring", companyName),
	}
	if jobTitle != "" {
		queries = append(queries, fmt.Sprintf("%s %s job requirements", companyName, jobTitle))
	}
	return queries
}

func formatResults(results []SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "Title: %s\nSnippet: %s\nLink: %s\n\n", r.Title, r.Snippet, r.Link)
	}
	return strings.TrimSpace(b.String())
}

// Generic is the deterministic last-resort research built from the company
// name and job title only.
func Generic(companyName, jobTitle string) Record {
	role := jobTitle
	if role == "" {
		role = "target"
	}
	return Record{
		CompanyName:     companyName,
		Overview:        fmt.Sprintf("Research %s online before your interview to understand their business model, values, and recent developments.", companyName),
		RecentNews:      "Check their website, LinkedIn, and recent news articles for current information.",
		TalkingPoints:   fmt.Sprintf("Highlight your relevant skills for the %s role and express genuine interest in their company mission.", role),
		Questions:       "Ask about team structure, growth opportunities, and company culture during your interview.",
		IndustryContext: "Research current trends and challenges in their industry to demonstrate market awareness.",
		Source:          SourceGeneric,
		Cost:            decimal.Zero,
	}
}

func mergeFields(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
