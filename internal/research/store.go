package research

import "context"

// Store persists one research record per application.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, applicationID int64) (Record, error)
}
