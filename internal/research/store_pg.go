package research

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) Upsert(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO company_research (
    application_id,
    company_name,
    overview,
    recent_news,
    talking_points,
    questions,
    industry_context,
    source,
    provider,
    tokens_used,
    cost,
    researched_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (application_id) DO UPDATE SET
    company_name = EXCLUDED.company_name,
    overview = EXCLUDED.overview,
    recent_news = EXCLUDED.recent_news,
    talking_points = EXCLUDED.talking_points,
    questions = EXCLUDED.questions,
    industry_context = EXCLUDED.industry_context,
    source = EXCLUDED.source,
    provider = EXCLUDED.provider,
    tokens_used = EXCLUDED.tokens_used,
    cost = EXCLUDED.cost,
    researched_at = EXCLUDED.researched_at`
	_, err := s.DB.ExecContext(ctx, query,
		rec.ApplicationID,
		rec.CompanyName,
		rec.Overview,
		rec.RecentNews,
		rec.TalkingPoints,
		rec.Questions,
		rec.IndustryContext,
		string(rec.Source),
		rec.Provider,
		rec.TokensUsed,
		rec.Cost.String(),
		rec.ResearchedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, applicationID int64) (Record, error) {
	const query = `
SELECT application_id, company_name, overview, recent_news, talking_points, questions, industry_context, source, provider, tokens_used, cost::TEXT, researched_at
FROM company_research
WHERE application_id = $1`
	var (
		rec    Record
		source string
		cost   string
	)
	err := s.DB.QueryRowContext(ctx, query, applicationID).Scan(
		&rec.ApplicationID,
		&rec.CompanyName,
		&rec.Overview,
		&rec.RecentNews,
		&rec.TalkingPoints,
		&rec.Questions,
		&rec.IndustryContext,
		&source,
		&rec.Provider,
		&rec.TokensUsed,
		&cost,
		&rec.ResearchedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Source = Source(source)
	rec.Cost, err = decimal.NewFromString(cost)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

var _ Store = (*PGStore)(nil)
