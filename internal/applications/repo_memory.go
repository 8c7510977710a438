package applications

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	apps     map[int64]Application
	profiles map[string]Profile
	nextID   int64
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		apps:     make(map[int64]Application),
		profiles: make(map[string]Profile),
	}
}

// Put stores an application, assigning an ID when it has none.
func (r *MemoryRepo) Put(app Application) Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app.ID == 0 {
		r.nextID++
		app.ID = r.nextID
	} else if app.ID > r.nextID {
		r.nextID = app.ID
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	r.apps[app.ID] = app
	return app
}

// PutProfile stores or replaces a profile.
func (r *MemoryRepo) PutProfile(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
}

// Get returns an application by ID.
func (r *MemoryRepo) Get(ctx context.Context, id int64) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

// Profile returns a user's profile.
func (r *MemoryRepo) Profile(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

var _ Repo = (*MemoryRepo)(nil)
