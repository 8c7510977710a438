package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const artifactColumns = `application_id, document_type, content, storage_key, provider, model, tokens_used, cost::TEXT, generation_ms, size_bytes, generated_at`

func (r *PGRepo) Upsert(ctx context.Context, a Artifact) error {
	const query = `
INSERT INTO generated_artifacts (
    application_id,
    document_type,
    content,
    storage_key,
    provider,
    model,
    tokens_used,
    cost,
    generation_ms,
    size_bytes,
    generated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (application_id, document_type) DO UPDATE SET
    content = EXCLUDED.content,
    storage_key = EXCLUDED.storage_key,
    provider = EXCLUDED.provider,
    model = EXCLUDED.model,
    tokens_used = EXCLUDED.tokens_used,
    cost = EXCLUDED.cost,
    generation_ms = EXCLUDED.generation_ms,
    size_bytes = EXCLUDED.size_bytes,
    generated_at = EXCLUDED.generated_at`
	_, err := r.DB.ExecContext(ctx, query,
		a.ApplicationID,
		string(a.DocumentType),
		a.Content,
		a.StorageKey,
		a.Provider,
		a.Model,
		a.TokensUsed,
		a.Cost.String(),
		a.GenerationTime.Milliseconds(),
		a.SizeBytes,
		a.GeneratedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, applicationID int64, documentType DocumentType) (Artifact, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+artifactColumns+`
FROM generated_artifacts
WHERE application_id = $1 AND document_type = $2`, applicationID, string(documentType))
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) List(ctx context.Context, applicationID int64) ([]Artifact, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+artifactColumns+`
FROM generated_artifacts
WHERE application_id = $1
ORDER BY document_type`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var (
		a       Artifact
		docType string
		cost    string
		genMs   int64
	)
	if err := row.Scan(
		&a.ApplicationID,
		&docType,
		&a.Content,
		&a.StorageKey,
		&a.Provider,
		&a.Model,
		&a.TokensUsed,
		&cost,
		&genMs,
		&a.SizeBytes,
		&a.GeneratedAt,
	); err != nil {
		return Artifact{}, err
	}
	a.DocumentType = DocumentType(docType)
	a.GenerationTime = time.Duration(genMs) * time.Millisecond
	a.GenerationMs = genMs
	var err error
	a.Cost, err = decimal.NewFromString(cost)
	if err != nil {
		return Artifact{}, err
	}
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
