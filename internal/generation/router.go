package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/providerstatus"
	"jobdocs-backend/internal/shared/config"
	"jobdocs-backend/internal/shared/metrics"
	"jobdocs-backend/internal/shared/telemetry"
	"jobdocs-backend/internal/usage"
)

// HealthTracker is the provider health and budget guard used by the Router.
type HealthTracker interface {
	IsEligible(ctx context.Context, providerID string) (providerstatus.Eligibility, error)
	RecordSuccess(ctx context.Context, providerID string, cost decimal.Decimal) (providerstatus.Status, error)
	RecordFailure(ctx context.Context, providerID string) (providerstatus.Status, error)
}

// UsageRecorder appends usage ledger records.
type UsageRecorder interface {
	Append(ctx context.Context, rec usage.Record) (usage.Record, error)
}

// Router sends a request to the primary provider and, on any failure, to the
// fallback provider exactly once. It never retries the same provider.
type Router struct {
	Gateway  llm.Gateway
	Health   HealthTracker
	Usage    UsageRecorder
	Primary  string
	Fallback string
	Rates    map[string]decimal.Decimal
	Models   map[string]string
	Now      func() time.Time
}

// NewRouter wires a Router from configuration.
func NewRouter(gateway llm.Gateway, health HealthTracker, recorder UsageRecorder, routing config.Routing, specs []config.ProviderSpec) *Router {
	rates := make(map[string]decimal.Decimal, len(specs))
	models := make(map[string]string, len(specs))
	for _, spec := range specs {
		rates[spec.ID] = spec.RatePerMillion
		models[spec.ID] = spec.Model
	}
	return &Router{
		Gateway:  gateway,
		Health:   health,
		Usage:    recorder,
		Primary:  routing.Primary,
		Fallback: routing.Fallback,
		Rates:    rates,
		Models:   models,
		Now:      time.Now,
	}
}

func (r *Router) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Router) order() []string {
	var out []string
	for _, id := range []string{r.Primary, r.Fallback} {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if len(out) > 0 && out[0] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Generate produces content for req. It always returns a Result; provider,
// health and ledger failures are reported inside it.
func (r *Router) Generate(ctx context.Context, req Request) (result Result) {
	start := r.now()
	fields := map[string]any{
		"document_type": req.DocumentType,
		"user_id":       req.UserID,
	}

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("generation.panic", mergeFields(fields, map[string]any{"error": fmt.Sprint(rec)}))
			result = Result{
				Success:        false,
				Cost:           decimal.Zero,
				ErrorKind:      llm.KindProvider,
				Error:          fmt.Sprintf("generation panic: %v", rec),
				Attempts:       result.Attempts,
				GenerationTime: r.now().Sub(start),
			}
		}
		metrics.ObserveGenerationDurationMs(float64(result.GenerationTime.Milliseconds()))
	}()

	result = Result{Cost: decimal.Zero, Attempts: []Attempt{}}
	var (
		lastKind = llm.KindNotConfigured
		lastErr  = "no providers configured"
	)

	for i, providerID := range r.order() {
		if i > 0 {
			metrics.IncFailover()
			telemetry.Info("generation.failover", mergeFields(fields, map[string]any{
				"from": r.Primary,
				"to":   providerID,
			}))
		}

		if skip, kind, reason := r.checkEligible(ctx, providerID, fields); skip {
			result.Attempts = append(result.Attempts, Attempt{Provider: providerID, Skipped: true, Reason: reason, ErrorKind: kind})
			lastKind = kind
			lastErr = fmt.Sprintf("%s unavailable: %s", providerID, reason)
			continue
		}

		attemptStart := r.now()
		completion, err := r.Gateway.Call(ctx, providerID, llm.Request{
			Prompt:       req.Prompt,
			SystemPrompt: req.SystemPrompt,
			MaxTokens:    req.MaxTokens,
		})
		elapsed := r.now().Sub(attemptStart)

		if err == nil {
			cost := Cost(completion.TokensUsed, r.Rates[providerID])
			model := completion.Model
			if model == "" {
				model = r.Models[providerID]
			}
			r.recordSuccess(ctx, providerID, cost, fields)
			r.appendUsage(ctx, usage.Record{
				UserID:      req.UserID,
				Provider:    providerID,
				Model:       model,
				TokensUsed:  completion.TokensUsed,
				Cost:        cost,
				RequestType: req.DocumentType,
				Success:     true,
			}, fields)
			metrics.IncGeneration(providerID, "success")

			result.Attempts = append(result.Attempts, Attempt{Provider: providerID, Duration: elapsed})
			result.Success = true
			result.Content = completion.Content
			result.Provider = providerID
			result.Model = model
			result.TokensUsed = completion.TokensUsed
			result.Cost = cost
			result.GenerationTime = r.now().Sub(start)

			telemetry.Info("generation.succeeded", mergeFields(fields, map[string]any{
				"provider":    providerID,
				"tokens_used": completion.TokensUsed,
				"cost":        cost.String(),
				"duration_ms": result.GenerationTime.Milliseconds(),
			}))
			return result
		}

		kind := llm.KindOf(err)
		lastKind = kind
		lastErr = err.Error()
		result.Attempts = append(result.Attempts, Attempt{Provider: providerID, ErrorKind: kind, Error: err.Error(), Duration: elapsed})
		metrics.IncGeneration(providerID, string(kind))
		telemetry.Warn("generation.attempt.failed", mergeFields(fields, map[string]any{
			"provider":    providerID,
			"error_kind":  string(kind),
			"error":       err.Error(),
			"duration_ms": elapsed.Milliseconds(),
		}))

		if kind == llm.KindNotConfigured {
			continue
		}
		r.recordFailure(ctx, providerID, fields)

		var llmErr *llm.Error
		if errors.As(err, &llmErr) && llmErr.Reached() {
			r.appendUsage(ctx, usage.Record{
				UserID:      req.UserID,
				Provider:    providerID,
				Model:       r.Models[providerID],
				Cost:        decimal.Zero,
				RequestType: req.DocumentType,
				Success:     false,
				ErrorKind:   string(kind),
			}, fields)
		}
	}

	result.Success = false
	result.ErrorKind = lastKind
	result.Error = lastErr
	result.GenerationTime = r.now().Sub(start)
	telemetry.Error("generation.failed", mergeFields(fields, map[string]any{
		"error_kind": string(lastKind),
		"error":      lastErr,
	}))
	return result
}

// checkEligible reports whether providerID must be skipped. A failing health
// store does not block generation.
func (r *Router) checkEligible(ctx context.Context, providerID string, fields map[string]any) (bool, llm.ErrorKind, string) {
	if r.Health == nil {
		return false, "", ""
	}
	eligibility, err := r.Health.IsEligible(ctx, providerID)
	if err != nil {
		if errors.Is(err, providerstatus.ErrUnknownProvider) {
			return true, llm.KindNotConfigured, "unknown provider"
		}
		telemetry.Error("generation.health_check_failed", mergeFields(fields, map[string]any{
			"provider": providerID,
			"error":    err.Error(),
		}))
		return false, "", ""
	}
	if eligibility.Eligible {
		return false, "", ""
	}
	kind := llm.KindUnavailable
	if eligibility.Reason == providerstatus.ReasonBudgetExhausted {
		kind = llm.KindRateLimited
	}
	telemetry.Info("generation.provider_skipped", mergeFields(fields, map[string]any{
		"provider": providerID,
		"reason":   eligibility.Reason,
	}))
	return true, kind, eligibility.Reason
}

func (r *Router) recordSuccess(ctx context.Context, providerID string, cost decimal.Decimal, fields map[string]any) {
	if r.Health == nil {
		return
	}
	if _, err := r.Health.RecordSuccess(ctx, providerID, cost); err != nil {
		telemetry.Error("generation.health_update_failed", mergeFields(fields, map[string]any{
			"provider": providerID,
			"error":    err.Error(),
		}))
	}
}

func (r *Router) recordFailure(ctx context.Context, providerID string, fields map[string]any) {
	if r.Health == nil {
		return
	}
	if _, err := r.Health.RecordFailure(ctx, providerID); err != nil {
		telemetry.Error("generation.health_update_failed", mergeFields(fields, map[string]any{
			"provider": providerID,
			"error":    err.Error(),
		}))
	}
}

func (r *Router) appendUsage(ctx context.Context, rec usage.Record, fields map[string]any) {
	if r.Usage == nil {
		return
	}
	if _, err := r.Usage.Append(ctx, rec); err != nil {
		telemetry.Error("generation.usage_append_failed", mergeFields(fields, map[string]any{
			"provider": rec.Provider,
			"error":    err.Error(),
		}))
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
