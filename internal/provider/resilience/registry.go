package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one provider.
type ProviderHealth struct {
	Name          string
	State         gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
	// StateChangedAt is when the breaker last moved between states.
	StateChangedAt *time.Time
}

// Open reports whether calls are currently being rejected.
func (h ProviderHealth) Open() bool {
	return h.State == gobreaker.StateOpen
}

// Probing reports whether the breaker is letting trial requests through.
func (h ProviderHealth) Probing() bool {
	return h.State == gobreaker.StateHalfOpen
}

// Registry tracks the providers the process calls.
type Registry struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	providers map[string]*entry
}

type entry struct {
	client         *Client
	lastSuccessAt  *time.Time
	lastFailureAt  *time.Time
	lastError      string
	stateChangedAt *time.Time
}

// NewRegistry creates an empty registry. Breaker transitions are logged to logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		providers: make(map[string]*entry),
	}
}

func (r *Registry) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[c.name] = &entry{client: c}
}

// RecordSuccess notes a successful call to name.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		now := time.Now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed call to name.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		now := time.Now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// stateChanged is the breaker hook. gobreaker calls it while holding the
// breaker's own lock, so it must not read breaker state.
func (r *Registry) stateChanged(name string, from, to gobreaker.State) {
	now := time.Now()

	r.mu.Lock()
	if e, ok := r.providers[name]; ok {
		e.stateChangedAt = &now
	}
	r.mu.Unlock()

	ev := r.logger.Info()
	if to == gobreaker.StateOpen {
		ev = r.logger.Warn()
	}
	ev.Str("provider", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("provider circuit state changed")
}

// Health returns the view of one provider.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	e, ok := r.providers[name]
	var snap entry
	if ok {
		snap = *e
	}
	r.mu.RUnlock()

	if !ok {
		return ProviderHealth{}, false
	}
	return snap.health(name), true
}

// Snapshot returns every provider sorted by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.RLock()
	entries := make(map[string]entry, len(r.providers))
	for name, e := range r.providers {
		entries[name] = *e
	}
	r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(entries))
	for name, e := range entries {
		out = append(out, e.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// health reads breaker state, so it must be called without r.mu held.
func (e entry) health(name string) ProviderHealth {
	return ProviderHealth{
		Name:           name,
		State:          e.client.State(),
		Counts:         e.client.Counts(),
		LastSuccessAt:  e.lastSuccessAt,
		LastFailureAt:  e.lastFailureAt,
		LastError:      e.lastError,
		StateChangedAt: e.stateChangedAt,
	}
}
