package artifacts

import "context"

// Repo persists one artifact per (application, document type).
type Repo interface {
	Upsert(ctx context.Context, a Artifact) error
	Get(ctx context.Context, applicationID int64, documentType DocumentType) (Artifact, error)
	List(ctx context.Context, applicationID int64) ([]Artifact, error)
}
