package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"jobdocs-backend/internal/applications"
	"jobdocs-backend/internal/artifacts"
	"jobdocs-backend/internal/generation"
	"jobdocs-backend/internal/jobs"
	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/research"
	"jobdocs-backend/internal/shared/metrics"
	"jobdocs-backend/internal/shared/telemetry"
)

const defaultConcurrency = 3

// Researcher produces company research and stores it on request. Run never
// fails.
type Researcher interface {
	Run(ctx context.Context, applicationID int64, companyName, jobTitle string) research.Record
	Save(ctx context.Context, rec research.Record) error
}

// ArtifactWriter persists generated artifacts.
type ArtifactWriter interface {
	Save(ctx context.Context, a artifacts.Artifact) (artifacts.Artifact, error)
	List(ctx context.Context, applicationID int64) ([]artifacts.Artifact, error)
}

// Service generates every document type for an application.
type Service struct {
	Applications applications.Repo
	Jobs         jobs.Repo
	Generator    generation.Generator
	Research     Researcher
	Artifacts    ArtifactWriter
	Concurrency  int
	Now          func() time.Time
	NewID        func() string
}

// NewService wires a batch Service.
func NewService(apps applications.Repo, jobRepo jobs.Repo, generator generation.Generator, researcher Researcher, writer ArtifactWriter, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		Applications: apps,
		Jobs:         jobRepo,
		Generator:    generator,
		Research:     researcher,
		Artifacts:    writer,
		Concurrency:  concurrency,
		Now:          func() time.Time { return time.Now().UTC() },
		NewID:        func() string { return uuid.NewString() },
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

// GenerateAll runs one batch for an application. Individual document failures
// are reported in the Summary; only orchestration failures return an error.
func (s *Service) GenerateAll(ctx context.Context, applicationID int64) (Summary, error) {
	start := s.now()
	metrics.IncBatchStarted()
	// Provider calls and bookkeeping outlive a cancelled caller.
	ctx = context.WithoutCancel(ctx)

	job := jobs.Job{
		ID:            s.newID(),
		ApplicationID: applicationID,
		Status:        jobs.StatusPending,
		TotalCost:     decimal.Zero,
		CreatedAt:     start,
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		metrics.IncBatchFailed()
		return Summary{}, fmt.Errorf("create job: %w", err)
	}
	job, err := s.Jobs.Transition(ctx, job.ID, jobs.StatusPending, jobs.StatusProcessing, s.now(), nil)
	if err != nil {
		metrics.IncBatchFailed()
		return Summary{}, fmt.Errorf("start job: %w", err)
	}

	fields := map[string]any{
		"job_id":         job.ID,
		"application_id": applicationID,
	}
	telemetry.Info("batch.started", fields)

	summary, err := s.run(ctx, job, fields)
	summary.DurationMs = s.now().Sub(start).Milliseconds()
	metrics.ObserveBatchDurationMs(float64(summary.DurationMs))
	if err != nil {
		metrics.IncBatchFailed()
		s.fail(ctx, job.ID, err.Error(), fields)
		summary.Status = jobs.StatusFailed
		return summary, err
	}
	metrics.IncBatchCompleted()
	return summary, nil
}

func (s *Service) run(ctx context.Context, job jobs.Job, fields map[string]any) (summary Summary, err error) {
	summary = Summary{
		JobID:         job.ID,
		ApplicationID: job.ApplicationID,
		Status:        job.Status,
		TotalCost:     decimal.Zero,
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("batch panic: %v", rec)
		}
	}()

	app, profile, err := s.load(ctx, job.ApplicationID, fields)
	if err != nil {
		return summary, err
	}

	var (
		outcomes    = make([]Outcome, len(artifacts.GeneratedTypes))
		researchRec research.Record
		researched  bool
		researchOut = make(chan struct{})
	)
	go func() {
		defer close(researchOut)
		if s.Research == nil {
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("batch.research.panic", mergeFields(fields, map[string]any{"error": fmt.Sprint(rec)}))
			}
		}()
		researchRec = s.Research.Run(ctx, app.ID, app.CompanyName, app.JobTitle)
		researched = true
	}()

	var g errgroup.Group
	g.SetLimit(s.concurrency())
	for i, docType := range artifacts.GeneratedTypes {
		g.Go(func() error {
			outcomes[i] = s.generate(ctx, app, profile, docType, fields)
			return nil
		})
	}
	_ = g.Wait()
	<-researchOut

	summary.Documents = outcomes
	if researched {
		summary.Research = &ResearchOutcome{Source: researchRec.Source, Success: researchRec.Succeeded()}
	}

	if _, err := s.Jobs.Get(ctx, job.ID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			telemetry.Warn("batch.job.orphaned", fields)
			summary.Orphaned = true
			return summary, nil
		}
		return summary, fmt.Errorf("check job: %w", err)
	}

	for i := range outcomes {
		if outcomes[i].Success {
			outcomes[i].Persisted = s.save(ctx, app.ID, &outcomes[i], fields)
		}
	}
	if researched {
		summary.Research.Persisted = s.saveResearch(ctx, app.ID, researchRec, fields)
	}

	provider, tokens, cost, generated := aggregate(outcomes)
	summary.ProviderUsed = provider
	summary.TotalTokens = tokens
	summary.TotalCost = cost
	summary.DocumentsGenerated = generated

	done, err := s.Jobs.Transition(ctx, job.ID, jobs.StatusProcessing, jobs.StatusCompleted, s.now(), func(j *jobs.Job) {
		j.ProviderUsed = provider
		j.TotalTokens = tokens
		j.TotalCost = cost
		j.DocumentsGenerated = generated
	})
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			telemetry.Warn("batch.job.orphaned", fields)
			summary.Orphaned = true
			return summary, nil
		}
		return summary, fmt.Errorf("complete job: %w", err)
	}
	summary.Status = done.Status

	telemetry.Info("batch.completed", mergeFields(fields, map[string]any{
		"documents_generated": generated,
		"total_tokens":        tokens,
		"total_cost":          cost.String(),
		"provider_used":       provider,
	}))
	return summary, nil
}

func (s *Service) load(ctx context.Context, applicationID int64, fields map[string]any) (applications.Application, applications.Profile, error) {
	app, err := s.Applications.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, applications.ErrNotFound) {
			return applications.Application{}, applications.Profile{}, fmt.Errorf("%w: %d", ErrApplicationNotFound, applicationID)
		}
		return applications.Application{}, applications.Profile{}, fmt.Errorf("load application: %w", err)
	}
	profile, err := s.Applications.Profile(ctx, app.UserID)
	if err != nil {
		if !errors.Is(err, applications.ErrProfileNotFound) {
			return applications.Application{}, applications.Profile{}, fmt.Errorf("load profile: %w", err)
		}
		telemetry.Warn("batch.profile.missing", mergeFields(fields, map[string]any{"user_id": app.UserID}))
		profile = applications.Profile{UserID: app.UserID}
	}
	return app, profile, nil
}

// generate runs one document type through the router.
func (s *Service) generate(ctx context.Context, app applications.Application, profile applications.Profile, docType artifacts.DocumentType, fields map[string]any) (out Outcome) {
	out = Outcome{DocumentType: docType, Cost: decimal.Zero}
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{DocumentType: docType, Cost: decimal.Zero, ErrorKind: llm.KindProvider, Error: fmt.Sprintf("panic: %v", rec)}
			telemetry.Error("batch.document.panic", mergeFields(fields, map[string]any{
				"document_type": string(docType),
				"error":         fmt.Sprint(rec),
			}))
		}
	}()

	res := s.Generator.Generate(ctx, generation.Request{
		Prompt:       llm.DocumentPrompt(string(docType), profile.ProfileData(), app.JobData()),
		SystemPrompt: llm.SystemPrompt(string(docType)),
		DocumentType: string(docType),
		UserID:       app.UserID,
	})
	out.Success = res.Success
	out.Provider = res.Provider
	out.Model = res.Model
	out.TokensUsed = res.TokensUsed
	out.Cost = res.Cost
	out.GenerationTime = res.GenerationTime
	out.GenerationMs = res.GenerationTime.Milliseconds()
	out.ErrorKind = res.ErrorKind
	out.Error = res.Error
	out.content = res.Content

	if !res.Success {
		telemetry.Warn("batch.document.failed", mergeFields(fields, map[string]any{
			"document_type": string(docType),
			"error_kind":    string(res.ErrorKind),
			"error":         res.Error,
		}))
	}
	return out
}

func (s *Service) save(ctx context.Context, applicationID int64, out *Outcome, fields map[string]any) bool {
	if s.Artifacts == nil {
		return false
	}
	_, err := s.Artifacts.Save(ctx, artifacts.Artifact{
		ApplicationID:  applicationID,
		DocumentType:   out.DocumentType,
		Content:        out.content,
		Provider:       out.Provider,
		Model:          out.Model,
		TokensUsed:     out.TokensUsed,
		Cost:           out.Cost,
		GenerationTime: out.GenerationTime,
		GeneratedAt:    s.now(),
	})
	if err != nil {
		telemetry.Error("batch.artifact.persist_failed", mergeFields(fields, map[string]any{
			"document_type": string(out.DocumentType),
			"error":         err.Error(),
		}))
		return false
	}
	return true
}

// saveResearch stores the research record and its report as the
// company_research artifact. It is not counted in the batch totals.
func (s *Service) saveResearch(ctx context.Context, applicationID int64, rec research.Record, fields map[string]any) bool {
	if err := s.Research.Save(ctx, rec); err != nil {
		telemetry.Error("batch.research.persist_failed", mergeFields(fields, map[string]any{"error": err.Error()}))
	}
	if s.Artifacts == nil {
		return false
	}
	_, err := s.Artifacts.Save(ctx, artifacts.Artifact{
		ApplicationID: applicationID,
		DocumentType:  artifacts.TypeCompanyResearch,
		Content:       research.FormatReport(rec),
		Provider:      "research:" + string(rec.Source),
		TokensUsed:    rec.TokensUsed,
		Cost:          rec.Cost,
		GeneratedAt:   s.now(),
	})
	if err != nil {
		telemetry.Error("batch.artifact.persist_failed", mergeFields(fields, map[string]any{
			"document_type": string(artifacts.TypeCompanyResearch),
			"error":         err.Error(),
		}))
		return false
	}
	return true
}

func (s *Service) fail(ctx context.Context, jobID, message string, fields map[string]any) {
	_, err := s.Jobs.Transition(ctx, jobID, jobs.StatusProcessing, jobs.StatusFailed, s.now(), func(j *jobs.Job) {
		j.ErrorMessage = message
	})
	if err != nil {
		telemetry.Error("batch.job.fail_update_failed", mergeFields(fields, map[string]any{"error": err.Error()}))
	}
	telemetry.Error("batch.failed", mergeFields(fields, map[string]any{"error": message}))
}

// Regenerate produces a single document type again and upserts its artifact.
func (s *Service) Regenerate(ctx context.Context, applicationID int64, documentType string) (Outcome, error) {
	docType, ok := artifacts.ParseDocumentType(documentType)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownDocumentType, documentType)
	}
	ctx = context.WithoutCancel(ctx)
	fields := map[string]any{
		"application_id": applicationID,
		"document_type":  documentType,
	}
	app, profile, err := s.load(ctx, applicationID, fields)
	if err != nil {
		return Outcome{}, err
	}

	if docType == artifacts.TypeCompanyResearch {
		if s.Research == nil {
			return Outcome{}, fmt.Errorf("%w: research is not configured", ErrUnknownDocumentType)
		}
		rec := s.Research.Run(ctx, app.ID, app.CompanyName, app.JobTitle)
		return Outcome{
			DocumentType: docType,
			Success:      rec.Succeeded(),
			Provider:     "research:" + string(rec.Source),
			TokensUsed:   rec.TokensUsed,
			Cost:         rec.Cost,
			Persisted:    s.saveResearch(ctx, app.ID, rec, fields),
		}, nil
	}

	out := s.generate(ctx, app, profile, docType, fields)
	if out.Success {
		out.Persisted = s.save(ctx, app.ID, &out, fields)
	}
	telemetry.Info("batch.document.regenerated", mergeFields(fields, map[string]any{
		"success":  out.Success,
		"provider": out.Provider,
	}))
	return out, nil
}

// LatestJob returns the most recent job for an application.
func (s *Service) LatestJob(ctx context.Context, applicationID int64) (jobs.Job, error) {
	return s.Jobs.LatestForApplication(ctx, applicationID)
}

// ListArtifacts returns every stored artifact for an application.
func (s *Service) ListArtifacts(ctx context.Context, applicationID int64) ([]artifacts.Artifact, error) {
	if s.Artifacts == nil {
		return nil, nil
	}
	return s.Artifacts.List(ctx, applicationID)
}

func (s *Service) concurrency() int {
	if s.Concurrency <= 0 {
		return defaultConcurrency
	}
	return s.Concurrency
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
