package usage

import (
	"context"
	"time"
)

// Store is append-only: records are inserted and read, never updated or deleted.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Totals(ctx context.Context, from, to time.Time) ([]ProviderTotal, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
}
