package jobs

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a generation job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job tracks one batch generation for an application.
type Job struct {
	ID                 string          `json:"id"`
	ApplicationID      int64           `json:"applicationId"`
	Status             Status          `json:"status"`
	StartedAt          *time.Time      `json:"startedAt,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	ProviderUsed       string          `json:"providerUsed,omitempty"`
	TotalTokens        int             `json:"totalTokens"`
	TotalCost          decimal.Decimal `json:"totalCost"`
	DocumentsGenerated int             `json:"documentsGenerated"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

var allowed = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from -> to moves the job forward.
func CanTransition(from, to Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
