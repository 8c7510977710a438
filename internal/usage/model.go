package usage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one immutable usage ledger entry for a provider call.
type Record struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Provider    string          `json:"provider"`
	Model       string          `json:"model"`
	TokensUsed  int             `json:"tokensUsed"`
	Cost        decimal.Decimal `json:"cost"`
	RequestType string          `json:"requestType"`
	Success     bool            `json:"success"`
	ErrorKind   string          `json:"errorKind,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProviderTotal aggregates ledger entries for one provider.
type ProviderTotal struct {
	Provider string          `json:"provider"`
	Requests int             `json:"requests"`
	Failures int             `json:"failures"`
	Tokens   int64           `json:"tokens"`
	Cost     decimal.Decimal `json:"cost"`
}

// Summary is the monthly cost report.
type Summary struct {
	Month       string          `json:"month"`
	Providers   []ProviderTotal `json:"providers"`
	TotalTokens int64           `json:"totalTokens"`
	TotalCost   decimal.Decimal `json:"totalCost"`
}
