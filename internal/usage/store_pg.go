package usage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Append(ctx context.Context, rec Record) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO usage_records (id, user_id, provider, model, tokens_used, cost, request_type, success, error_kind, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID,
		rec.UserID,
		rec.Provider,
		rec.Model,
		rec.TokensUsed,
		rec.Cost.String(),
		rec.RequestType,
		rec.Success,
		rec.ErrorKind,
		rec.CreatedAt,
	)
	return err
}

func (s *PGStore) Totals(ctx context.Context, from, to time.Time) ([]ProviderTotal, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT provider,
       COUNT(*),
       COUNT(*) FILTER (WHERE NOT success),
       COALESCE(SUM(tokens_used), 0),
       COALESCE(SUM(cost), 0)::TEXT
FROM usage_records
WHERE created_at >= $1 AND created_at < $2
GROUP BY provider
ORDER BY provider`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProviderTotal
	for rows.Next() {
		var (
			total ProviderTotal
			cost  string
		)
		if err := rows.Scan(&total.Provider, &total.Requests, &total.Failures, &total.Tokens, &cost); err != nil {
			return nil, err
		}
		total.Cost, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, err
		}
		out = append(out, total)
	}
	return out, rows.Err()
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, provider, model, tokens_used, cost::TEXT, request_type, success, error_kind, created_at
FROM usage_records
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec  Record
			cost string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Provider, &rec.Model, &rec.TokensUsed, &cost, &rec.RequestType, &rec.Success, &rec.ErrorKind, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Cost, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
