package artifacts

import (
	"context"
	"fmt"
	"strconv"

	"jobdocs-backend/internal/shared/storage/object"
	"jobdocs-backend/internal/shared/telemetry"
)

// ContentType is the media type of every artifact body.
const ContentType = "text/plain; charset=utf-8"

// Writer saves artifacts to the repository and, when an object store is
// configured, writes the full body under StorageKey.
type Writer struct {
	Repo    Repo
	Objects object.ObjectStore
}

// NewWriter constructs a Writer. objects may be nil.
func NewWriter(repo Repo, objects object.ObjectStore) *Writer {
	return &Writer{Repo: repo, Objects: objects}
}

// Save upserts a. An object store failure is logged and leaves StorageKey empty.
func (w *Writer) Save(ctx context.Context, a Artifact) (Artifact, error) {
	a.SizeBytes = int64(len(a.Content))
	a.GenerationMs = a.GenerationTime.Milliseconds()
	if w.Objects != nil {
		key := StorageKey(a.ApplicationID, a.DocumentType)
		size, err := w.Objects.Put(ctx, object.Object{
			Key:         key,
			ContentType: ContentType,
			Body:        []byte(a.Content),
			Metadata: map[string]string{
				"application-id": strconv.FormatInt(a.ApplicationID, 10),
				"document-type":  string(a.DocumentType),
				"provider":       a.Provider,
			},
		})
		if err != nil {
			telemetry.Warn("artifact.object_store_failed", map[string]any{
				"application_id": a.ApplicationID,
				"document_type":  string(a.DocumentType),
				"storage_key":    key,
				"error":          err.Error(),
			})
		} else {
			a.StorageKey = key
			a.SizeBytes = size
		}
	}
	if err := w.Repo.Upsert(ctx, a); err != nil {
		return a, fmt.Errorf("upsert artifact %s: %w", a.DocumentType, err)
	}
	return a, nil
}

// List returns every stored artifact for an application.
func (w *Writer) List(ctx context.Context, applicationID int64) ([]Artifact, error) {
	out, err := w.Repo.List(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].GenerationMs = out[i].GenerationTime.Milliseconds()
	}
	return out, nil
}

// Body returns the full text of one artifact. The object store copy is
// preferred when the artifact has one; if it cannot be read the database
// copy is served instead.
func (w *Writer) Body(ctx context.Context, applicationID int64, documentType DocumentType) (Artifact, []byte, error) {
	a, err := w.Repo.Get(ctx, applicationID, documentType)
	if err != nil {
		return Artifact{}, nil, err
	}
	a.GenerationMs = a.GenerationTime.Milliseconds()
	if a.StorageKey == "" || w.Objects == nil {
		return a, []byte(a.Content), nil
	}
	body, err := w.Objects.Get(ctx, a.StorageKey)
	if err != nil {
		telemetry.Warn("artifact.object_read_failed", map[string]any{
			"application_id": applicationID,
			"document_type":  string(documentType),
			"storage_key":    a.StorageKey,
			"error":          err.Error(),
		})
		return a, []byte(a.Content), nil
	}
	return a, body, nil
}
