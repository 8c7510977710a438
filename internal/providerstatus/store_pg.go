package providerstatus

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PGStore implements Store using Postgres row locks.
type PGStore struct {
	DB *sql.DB
}

const selectColumns = `provider_id, active, failure_streak, success_count, failure_count,
       last_success, last_failure, monthly_cost, monthly_requests, last_reset`

func (s *PGStore) Ensure(ctx context.Context, providerID string, now time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO provider_status (provider_id, active, last_reset)
VALUES ($1, TRUE, $2)
ON CONFLICT (provider_id) DO NOTHING`, providerID, now)
	return err
}

func (s *PGStore) Get(ctx context.Context, providerID string) (Status, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM provider_status WHERE provider_id = $1`, providerID)
	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Status{}, ErrNotFound
	}
	return st, err
}

func (s *PGStore) List(ctx context.Context) ([]Status, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+selectColumns+` FROM provider_status ORDER BY provider_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Update locks the provider row with SELECT ... FOR UPDATE, applies fn and
// writes the result back in the same transaction.
func (s *PGStore) Update(ctx context.Context, providerID string, now time.Time, fn func(*Status)) (Status, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Status{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
INSERT INTO provider_status (provider_id, active, last_reset)
VALUES ($1, TRUE, $2)
ON CONFLICT (provider_id) DO NOTHING`, providerID, now); err != nil {
		return Status{}, err
	}

	var st Status
	st, err = scanStatus(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM provider_status WHERE provider_id = $1 FOR UPDATE`, providerID))
	if err != nil {
		return Status{}, err
	}

	fn(&st)

	if _, err = tx.ExecContext(ctx, `
UPDATE provider_status
SET active = $1, failure_streak = $2, success_count = $3, failure_count = $4,
    last_success = $5, last_failure = $6, monthly_cost = $7, monthly_requests = $8,
    last_reset = $9, updated_at = $10
WHERE provider_id = $11`,
		st.Active,
		st.FailureStreak,
		st.SuccessCount,
		st.FailureCount,
		st.LastSuccess,
		st.LastFailure,
		st.MonthlyCost.String(),
		st.MonthlyRequests,
		st.LastReset,
		now,
		providerID,
	); err != nil {
		return Status{}, err
	}
	if err = tx.Commit(); err != nil {
		return Status{}, err
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (Status, error) {
	var (
		st          Status
		lastSuccess sql.NullTime
		lastFailure sql.NullTime
		cost        string
	)
	if err := row.Scan(
		&st.ProviderID,
		&st.Active,
		&st.FailureStreak,
		&st.SuccessCount,
		&st.FailureCount,
		&lastSuccess,
		&lastFailure,
		&cost,
		&st.MonthlyRequests,
		&st.LastReset,
	); err != nil {
		return Status{}, err
	}
	if lastSuccess.Valid {
		t := lastSuccess.Time
		st.LastSuccess = &t
	}
	if lastFailure.Valid {
		t := lastFailure.Time
		st.LastFailure = &t
	}
	parsed, err := decimal.NewFromString(cost)
	if err != nil {
		return Status{}, err
	}
	st.MonthlyCost = parsed
	return st, nil
}

var _ Store = (*PGStore)(nil)
