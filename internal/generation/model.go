package generation

import (
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/llm"
)

// Request is one generation request routed across providers.
type Request struct {
	Prompt       string
	SystemPrompt string
	DocumentType string
	UserID       string
	MaxTokens    int
}

// Attempt records what happened with one provider during a generation.
type Attempt struct {
	Provider  string        `json:"provider"`
	Skipped   bool          `json:"skipped"`
	Reason    string        `json:"reason,omitempty"`
	ErrorKind llm.ErrorKind `json:"errorKind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Result is always returned by Router.Generate; failures are data, not errors.
type Result struct {
	Success        bool            `json:"success"`
	Content        string          `json:"content,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	Model          string          `json:"model,omitempty"`
	TokensUsed     int             `json:"tokensUsed"`
	Cost           decimal.Decimal `json:"cost"`
	GenerationTime time.Duration   `json:"-"`
	ErrorKind      llm.ErrorKind   `json:"errorKind,omitempty"`
	Error          string          `json:"error,omitempty"`
	Attempts       []Attempt       `json:"attempts"`
}

// Cost returns tokens multiplied by a per-million-token rate.
func Cost(tokens int, ratePerMillion decimal.Decimal) decimal.Decimal {
	if tokens <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(tokens)).Mul(ratePerMillion).Div(decimal.NewFromInt(1_000_000))
}
