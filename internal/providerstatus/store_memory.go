package providerstatus

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	mu     sync.Mutex
	status Status
}

// MemoryStore keeps provider status in process memory with one lock per provider.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) entry(providerID string, now time.Time) *memoryEntry {
	s.mu.RLock()
	e, ok := s.entries[providerID]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[providerID]; ok {
		return e
	}
	e = &memoryEntry{status: newStatus(providerID, now)}
	s.entries[providerID] = e
	return e
}

func (s *MemoryStore) Ensure(ctx context.Context, providerID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.entry(providerID, now)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, providerID string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	s.mu.RLock()
	e, ok := s.entries[providerID]
	s.mu.RUnlock()
	if !ok {
		return Status{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Status, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.status)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, providerID string, now time.Time, fn func(*Status)) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	e := s.entry(providerID, now)
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.status
	fn(&next)
	e.status = next
	return next, nil
}

var _ Store = (*MemoryStore)(nil)
