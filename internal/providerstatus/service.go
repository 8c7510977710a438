package providerstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"jobdocs-backend/internal/shared/config"
	"jobdocs-backend/internal/shared/telemetry"
)

const defaultFailureThreshold = 5

// Tracker is the circuit breaker and monthly budget guard for providers.
//
// The budget is a soft guard: eligibility is checked before a call and cost is
// added after it, so calls admitted concurrently just below the limit can
// overrun it by their own cost.
type Tracker struct {
	Store            Store
	Limits           map[string]decimal.Decimal
	FailureThreshold int
	Now              func() time.Time
}

// NewTracker builds a Tracker with limits taken from the provider specs.
func NewTracker(store Store, specs []config.ProviderSpec, failureThreshold int) *Tracker {
	limits := make(map[string]decimal.Decimal, len(specs))
	for _, spec := range specs {
		limits[spec.ID] = spec.MonthlyLimit
	}
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	return &Tracker{
		Store:            store,
		Limits:           limits,
		FailureThreshold: failureThreshold,
		Now:              func() time.Time { return time.Now().UTC() },
	}
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

// EnsureProviders creates a status row for every configured provider.
func (t *Tracker) EnsureProviders(ctx context.Context) error {
	now := t.now()
	for id := range t.Limits {
		if err := t.Store.Ensure(ctx, id, now); err != nil {
			return fmt.Errorf("ensure provider %s: %w", id, err)
		}
	}
	return nil
}

// IsEligible resets monthly counters when the calendar month has changed and
// reports whether the provider may be called.
func (t *Tracker) IsEligible(ctx context.Context, providerID string) (Eligibility, error) {
	limit, ok := t.Limits[providerID]
	if !ok {
		return Eligibility{}, ErrUnknownProvider
	}
	now := t.now()
	st, err := t.Store.Update(ctx, providerID, now, func(s *Status) {
		resetIfNewMonth(s, now)
	})
	if err != nil {
		return Eligibility{}, err
	}

	switch {
	case !st.Active:
		return Eligibility{Eligible: false, Reason: ReasonInactive, Status: st}, nil
	case st.MonthlyCost.GreaterThanOrEqual(limit):
		telemetry.Warn("provider.budget.exhausted", map[string]any{
			"provider":     providerID,
			"monthly_cost": st.MonthlyCost.String(),
			"limit":        limit.String(),
		})
		return Eligibility{Eligible: false, Reason: ReasonBudgetExhausted, Status: st}, nil
	default:
		return Eligibility{Eligible: true, Status: st}, nil
	}
}

// RecordSuccess clears the failure streak and adds cost to the monthly spend.
// It never re-activates a provider the circuit breaker has disabled.
func (t *Tracker) RecordSuccess(ctx context.Context, providerID string, cost decimal.Decimal) (Status, error) {
	if _, ok := t.Limits[providerID]; !ok {
		return Status{}, ErrUnknownProvider
	}
	now := t.now()
	return t.Store.Update(ctx, providerID, now, func(s *Status) {
		resetIfNewMonth(s, now)
		s.FailureStreak = 0
		s.SuccessCount++
		s.LastSuccess = &now
		s.MonthlyCost = s.MonthlyCost.Add(cost)
		s.MonthlyRequests++
	})
}

// RecordFailure extends the failure streak and opens the circuit once it
// reaches the threshold.
func (t *Tracker) RecordFailure(ctx context.Context, providerID string) (Status, error) {
	if _, ok := t.Limits[providerID]; !ok {
		return Status{}, ErrUnknownProvider
	}
	now := t.now()
	opened := false
	st, err := t.Store.Update(ctx, providerID, now, func(s *Status) {
		resetIfNewMonth(s, now)
		s.FailureStreak++
		s.FailureCount++
		s.MonthlyRequests++
		s.LastFailure = &now
		if s.Active && s.FailureStreak >= t.threshold() {
			s.Active = false
			opened = true
		}
	})
	if err != nil {
		return Status{}, err
	}
	if opened {
		telemetry.Warn("provider.circuit.opened", map[string]any{
			"provider":       providerID,
			"failure_streak": st.FailureStreak,
		})
	}
	return st, nil
}

// Toggle activates or deactivates a provider. Activating clears the failure streak.
func (t *Tracker) Toggle(ctx context.Context, providerID string, active bool) (Status, error) {
	if _, ok := t.Limits[providerID]; !ok {
		return Status{}, ErrUnknownProvider
	}
	st, err := t.Store.Update(ctx, providerID, t.now(), func(s *Status) {
		s.Active = active
		if active {
			s.FailureStreak = 0
		}
	})
	if err != nil {
		return Status{}, err
	}
	telemetry.Info("provider.toggled", map[string]any{
		"provider": providerID,
		"active":   active,
	})
	return st, nil
}

// Get returns the reporting view of one provider.
func (t *Tracker) Get(ctx context.Context, providerID string) (View, error) {
	limit, ok := t.Limits[providerID]
	if !ok {
		return View{}, ErrUnknownProvider
	}
	st, err := t.Store.Get(ctx, providerID)
	if err != nil {
		return View{}, err
	}
	return View{Status: st, SuccessRate: st.SuccessRate(), MonthlyLimit: limit}, nil
}

// List returns the reporting view of every stored provider.
func (t *Tracker) List(ctx context.Context) ([]View, error) {
	statuses, err := t.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, View{Status: st, SuccessRate: st.SuccessRate(), MonthlyLimit: t.Limits[st.ProviderID]})
	}
	return out, nil
}

func (t *Tracker) threshold() int {
	if t.FailureThreshold <= 0 {
		return defaultFailureThreshold
	}
	return t.FailureThreshold
}

func resetIfNewMonth(s *Status, now time.Time) {
	last := s.LastReset.UTC()
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return
	}
	s.MonthlyCost = decimal.Zero
	s.MonthlyRequests = 0
	s.LastReset = now
}
