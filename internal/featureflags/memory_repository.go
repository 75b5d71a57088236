package featureflags

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps overrides in a map. Flags are stored by value so
// callers cannot mutate them after the fact.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{flags: make(map[string]Flag)}
}

// List returns overrides sorted by key.
func (r *InMemoryRepository) List(_ context.Context) ([]Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Flag, 0, len(r.flags))
	for _, f := range r.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *InMemoryRepository) Upsert(_ context.Context, flags []Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, f := range flags {
		r.flags[f.Key] = Flag{Key: f.Key, Value: f.Value, UpdatedAt: now}
	}
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.flags, key)
	return nil
}
