package providerstatus

import (
	"context"
	"time"
)

// Store persists provider status. Update applies fn atomically with respect
// to every other mutation of the same provider, creating a default row first
// when none exists.
type Store interface {
	Ensure(ctx context.Context, providerID string, now time.Time) error
	Get(ctx context.Context, providerID string) (Status, error)
	List(ctx context.Context) ([]Status, error)
	Update(ctx context.Context, providerID string, now time.Time, fn func(*Status)) (Status, error)
}
