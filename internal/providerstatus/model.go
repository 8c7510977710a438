package providerstatus

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the persisted health and budget state of one provider.
type Status struct {
	ProviderID      string          `json:"providerId"`
	Active          bool            `json:"active"`
	FailureStreak   int             `json:"failureStreak"`
	SuccessCount    int64           `json:"successCount"`
	FailureCount    int64           `json:"failureCount"`
	LastSuccess     *time.Time      `json:"lastSuccess,omitempty"`
	LastFailure     *time.Time      `json:"lastFailure,omitempty"`
	MonthlyCost     decimal.Decimal `json:"monthlyCost"`
	MonthlyRequests int             `json:"monthlyRequests"`
	LastReset       time.Time       `json:"lastReset"`
}

// SuccessRate returns the percentage of successful attempts, 0 when none were made.
func (s Status) SuccessRate() float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(total) * 100
}

func newStatus(providerID string, now time.Time) Status {
	return Status{
		ProviderID:  providerID,
		Active:      true,
		MonthlyCost: decimal.Zero,
		LastReset:   now,
	}
}

// Eligibility is the outcome of an eligibility check.
type Eligibility struct {
	Eligible bool
	Reason   string
	Status   Status
}

// Reasons reported when a provider is not eligible.
const (
	ReasonInactive        = "inactive"
	ReasonBudgetExhausted = "budget_exhausted"
)

// View is the reporting shape of a provider's status.
type View struct {
	Status
	SuccessRate  float64         `json:"successRate"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
}
