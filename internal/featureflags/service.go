package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long a loaded snapshot is served before the
// repository is read again.
const DefaultCacheTTL = time.Minute

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration
}

// Service evaluates flags from a cached snapshot of the repository.
// When the repository cannot be read the previous snapshot is kept, and
// without one the definition defaults apply.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	ttl    time.Duration

	mu       sync.Mutex
	snapshot map[string]Flag
	loadedAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		ttl:    ttl,
	}
}

// current returns the effective flags, reloading when the snapshot expired.
func (s *Service) current(ctx context.Context) map[string]Flag {
	s.mu.Lock()
	if s.snapshot != nil && time.Since(s.loadedAt) < s.ttl {
		snap := s.snapshot
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()

	stored, err := s.repo.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load feature flags")
		if s.snapshot == nil {
			return effective(nil)
		}
		// Serve the stale snapshot and retry after another TTL.
		s.loadedAt = time.Now()
		return s.snapshot
	}
	s.snapshot = effective(stored)
	s.loadedAt = time.Now()
	return s.snapshot
}

// effective overlays stored overrides on the definition defaults. Overrides
// for keys that are no longer defined are ignored.
func effective(stored []Flag) map[string]Flag {
	out := make(map[string]Flag, len(definitions))
	for _, d := range definitions {
		out[d.Key] = Flag{Key: d.Key, Value: d.Default, Description: d.Description, IsDefault: true}
	}
	for _, f := range stored {
		d, ok := lookup(f.Key)
		if !ok {
			continue
		}
		out[f.Key] = Flag{Key: f.Key, Value: f.Value, Description: d.Description, UpdatedAt: f.UpdatedAt}
	}
	return out
}

// Get returns the effective flag for key, or nil for an unknown key.
func (s *Service) Get(ctx context.Context, key string) *Flag {
	f, ok := s.current(ctx)[key]
	if !ok {
		return nil
	}
	return &f
}

// List returns every effective flag sorted by key.
func (s *Service) List(ctx context.Context) FlagList {
	snap := s.current(ctx)
	list := FlagList{Items: make([]Flag, 0, len(snap))}
	for _, f := range snap {
		list.Items = append(list.Items, f)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })
	return list
}

// Update validates and stores a batch of overrides. Nothing is written when
// any update is invalid. It returns the effective values of the updated keys.
func (s *Service) Update(ctx context.Context, req FlagUpdateRequest, actor string) (FlagList, error) {
	flags := make([]Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		if err := u.Validate(); err != nil {
			return FlagList{}, err
		}
		flags = append(flags, Flag{Key: u.Key, Value: normalize(u.Value)})
	}

	if err := s.repo.Upsert(ctx, flags); err != nil {
		return FlagList{}, fmt.Errorf("storing feature flags: %w", err)
	}
	s.Invalidate()

	snap := s.current(ctx)
	out := FlagList{Items: make([]Flag, 0, len(flags))}
	for _, f := range flags {
		s.logger.Info().
			Str("flag", f.Key).
			Interface("value", f.Value).
			Str("actor", actor).
			Str("reason", req.Reason).
			Msg("feature flag updated")
		out.Items = append(out.Items, snap[f.Key])
	}
	return out, nil
}

// Reset removes the override for key so its default applies again.
// Resetting a flag that has no override is not an error.
func (s *Service) Reset(ctx context.Context, key, actor string) error {
	if _, ok := lookup(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFlag, key)
	}
	if err := s.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrFlagNotFound) {
		return fmt.Errorf("resetting flag %s: %w", key, err)
	}
	s.Invalidate()

	s.logger.Info().Str("flag", key).Str("actor", actor).Msg("feature flag reset")
	return nil
}

// Invalidate drops the snapshot so the next read goes to the repository.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.loadedAt = time.Time{}
}

func (s *Service) enabled(ctx context.Context, key string) bool {
	v, _ := s.Get(ctx, key).Bool()
	return v
}

// IsAdvisoryDisabled returns true if recommendations should skip the advisory model.
func (s *Service) IsAdvisoryDisabled(ctx context.Context) bool {
	return s.enabled(ctx, FlagDisableAdvisory)
}

// IsLiveFeedDisabled returns true if the occupancy websocket is switched off.
func (s *Service) IsLiveFeedDisabled(ctx context.Context) bool {
	return s.enabled(ctx, FlagDisableLiveFeed)
}

// AdvisoryCandidateLimit returns the maximum number of stations in the advisory prompt.
func (s *Service) AdvisoryCandidateLimit(ctx context.Context) int {
	n, ok := s.Get(ctx, FlagAdvisoryCandidateLimit).Int()
	if !ok || n < 1 {
		return DefaultAdvisoryCandidateLimit
	}
	return n
}

// ActiveDegradations lists the degrading switches currently turned on.
func (s *Service) ActiveDegradations(ctx context.Context) []string {
	snap := s.current(ctx)
	var active []string
	for _, d := range definitions {
		if !d.Degrades {
			continue
		}
		f := snap[d.Key]
		if v, _ := f.Bool(); v {
			active = append(active, d.Key)
		}
	}
	return active
}
