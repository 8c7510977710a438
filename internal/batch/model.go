package batch

import (
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/artifacts"
	"jobdocs-backend/internal/jobs"
	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/research"
)

// Outcome is the result of generating one document type.
type Outcome struct {
	DocumentType   artifacts.DocumentType `json:"documentType"`
	Success        bool                   `json:"success"`
	Provider       string                 `json:"provider,omitempty"`
	Model          string                 `json:"model,omitempty"`
	TokensUsed     int                    `json:"tokensUsed"`
	Cost           decimal.Decimal        `json:"cost"`
	GenerationTime time.Duration          `json:"-"`
	GenerationMs   int64                  `json:"generationTimeMs"`
	ErrorKind      llm.ErrorKind          `json:"errorKind,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Persisted      bool                   `json:"persisted"`

	content string
}

// ResearchOutcome reports the research tier that answered.
type ResearchOutcome struct {
	Source    research.Source `json:"source"`
	Success   bool            `json:"success"`
	Persisted bool            `json:"persisted"`
}

// Summary is the result of one batch over every document type.
type Summary struct {
	JobID              string           `json:"jobId"`
	ApplicationID      int64            `json:"applicationId"`
	Status             jobs.Status      `json:"status"`
	ProviderUsed       string           `json:"providerUsed,omitempty"`
	TotalTokens        int              `json:"totalTokens"`
	TotalCost          decimal.Decimal  `json:"totalCost"`
	DocumentsGenerated int              `json:"documentsGenerated"`
	Documents          []Outcome        `json:"documents"`
	Research           *ResearchOutcome `json:"research,omitempty"`
	// Orphaned is set when the job disappeared mid-run and nothing was persisted.
	Orphaned   bool  `json:"orphaned,omitempty"`
	DurationMs int64 `json:"durationMs"`
}

// aggregate computes totals over successful generations. ProviderUsed is the
// provider of the last successful type in the fixed order.
func aggregate(outcomes []Outcome) (provider string, tokens int, cost decimal.Decimal, generated int) {
	cost = decimal.Zero
	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		provider = o.Provider
		tokens += o.TokensUsed
		cost = cost.Add(o.Cost)
		generated++
	}
	return provider, tokens, cost, generated
}
