package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Ledger appends usage records and reports monthly totals.
type Ledger struct {
	Store Store
	Now   func() time.Time
}

// NewLedger constructs a Ledger over store.
func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

// Append stores rec, assigning an ID and timestamp when missing.
func (l *Ledger) Append(ctx context.Context, rec Record) (Record, error) {
	if strings.TrimSpace(rec.Provider) == "" {
		return Record{}, fmt.Errorf("usage record provider is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now()
	}
	if err := l.Store.Append(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("append usage record: %w", err)
	}
	return rec, nil
}

// MonthlySummary aggregates the calendar month named by "YYYY-MM". An empty
// month selects the current one.
func (l *Ledger) MonthlySummary(ctx context.Context, month string) (Summary, error) {
	start, err := parseMonth(month, l.now())
	if err != nil {
		return Summary{}, err
	}
	end := start.AddDate(0, 1, 0)

	totals, err := l.Store.Totals(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Month:     start.Format("2006-01"),
		Providers: totals,
		TotalCost: decimal.Zero,
	}
	if summary.Providers == nil {
		summary.Providers = []ProviderTotal{}
	}
	for _, t := range totals {
		summary.TotalTokens += t.Tokens
		summary.TotalCost = summary.TotalCost.Add(t.Cost)
	}
	return summary, nil
}

// Recent returns the newest records first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return l.Store.Recent(ctx, limit)
}

func parseMonth(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t.UTC(), nil
}
