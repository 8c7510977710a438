package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, application_id, status, started_at, completed_at, provider_used, total_tokens, total_cost::TEXT, documents_generated, error_message, created_at`

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO generation_jobs (id, application_id, status, provider_used, total_tokens, total_cost, documents_generated, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.ApplicationID,
		string(job.Status),
		job.ProviderUsed,
		job.TotalTokens,
		job.TotalCost.String(),
		job.DocumentsGenerated,
		job.ErrorMessage,
		job.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (r *PGRepo) LatestForApplication(ctx context.Context, applicationID int64) (Job, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE application_id = $1
ORDER BY created_at DESC
LIMIT 1`, applicationID)
	return scanJob(row)
}

func (r *PGRepo) Transition(ctx context.Context, id string, from, to Status, now time.Time, fn func(*Job)) (job Job, err error) {
	if !CanTransition(from, to) {
		return Job{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	job, err = scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Job{}, err
	}
	if job.Status != from {
		return Job{}, fmt.Errorf("%w: job is %s, expected %s", ErrInvalidTransition, job.Status, from)
	}
	applyTransition(&job, to, now)
	if fn != nil {
		fn(&job)
	}

	_, err = tx.ExecContext(ctx, `
UPDATE generation_jobs
SET status = $2,
    started_at = $3,
    completed_at = $4,
    provider_used = $5,
    total_tokens = $6,
    total_cost = $7,
    documents_generated = $8,
    error_message = $9
WHERE id = $1`,
		job.ID,
		string(job.Status),
		nullTime(job.StartedAt),
		nullTime(job.CompletedAt),
		job.ProviderUsed,
		job.TotalTokens,
		job.TotalCost.String(),
		job.DocumentsGenerated,
		job.ErrorMessage,
	)
	if err != nil {
		return Job{}, err
	}
	if err = tx.Commit(); err != nil {
		return Job{}, err
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job         Job
		status      string
		startedAt   sql.NullTime
		completedAt sql.NullTime
		cost        string
	)
	err := row.Scan(
		&job.ID,
		&job.ApplicationID,
		&status,
		&startedAt,
		&completedAt,
		&job.ProviderUsed,
		&job.TotalTokens,
		&cost,
		&job.DocumentsGenerated,
		&job.ErrorMessage,
		&job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	job.Status = Status(status)
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	job.TotalCost, err = decimal.NewFromString(cost)
	if err != nil {
		return Job{}, err
	}
	return job, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
