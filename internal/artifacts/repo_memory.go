package artifacts

import (
	"context"
	"sort"
	"sync"
)

type artifactKey struct {
	applicationID int64
	documentType  DocumentType
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[artifactKey]Artifact
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[artifactKey]Artifact)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[artifactKey{a.ApplicationID, a.DocumentType}] = a
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, applicationID int64, documentType DocumentType) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.data[artifactKey{applicationID, documentType}]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, applicationID int64) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Artifact
	for key, a := range r.data {
		if key.applicationID == applicationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentType < out[j].DocumentType })
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
