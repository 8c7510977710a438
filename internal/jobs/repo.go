package jobs

import (
	"context"
	"time"
)

// Repo persists generation jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	LatestForApplication(ctx context.Context, applicationID int64) (Job, error)
	// Transition moves a job from one status to another only if its current
	// status is still from. fn may set the remaining fields.
	Transition(ctx context.Context, id string, from, to Status, now time.Time, fn func(*Job)) (Job, error)
}
