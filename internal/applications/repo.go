package applications

import "context"

// Repo reads applications and profiles. Both are owned elsewhere.
type Repo interface {
	Get(ctx context.Context, id int64) (Application, error)
	Profile(ctx context.Context, userID string) (Profile, error)
}
