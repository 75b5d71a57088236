package directions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// Default cache settings.
const (
	DefaultCacheTTL       = 5 * time.Minute
	DefaultCachePrecision = 3 // ~110 m
	DefaultMaxEntries     = 1000
)

// MetricsRecorder receives provider call measurements.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

const metricsOperation = "directions"

// ServiceConfig holds configuration for the directions service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// Metrics is optional.
	Metrics MetricsRecorder

	// CacheTTL is how long a route stays cached (default: 5 minutes).
	CacheTTL time.Duration

	// CachePrecision is the number of decimal places coordinates are
	// rounded to when building cache keys (default: 3).
	CachePrecision int

	// MaxEntries bounds the cache size (default: 1000).
	MaxEntries int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service validates requests and caches provider responses.
type Service struct {
	provider   Provider
	logger     zerolog.Logger
	metrics    MetricsRecorder
	ttl        time.Duration
	precision  int
	maxEntries int
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedResponse
}

type cachedResponse struct {
	response  *Response
	expiresAt time.Time
}

// NewService creates a directions service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CachePrecision == 0 {
		cfg.CachePrecision = DefaultCachePrecision
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		provider:   cfg.Provider,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		ttl:        cfg.CacheTTL,
		precision:  cfg.CachePrecision,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Now,
		cache:      make(map[string]cachedResponse),
	}
}

// GetDirections returns routes from origin to destination. Mode defaults to driving.
func (s *Service) GetDirections(ctx context.Context, req Request) (*Response, error) {
	if req.Mode == "" {
		req.Mode = ModeDriving
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)
	now := s.now()

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && now.Before(cached.expiresAt) {
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for directions")
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.provider.Name(), metricsOperation)
		}
		return cached.response, nil
	}

	start := time.Now()
	resp, err := s.provider.GetDirections(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), metricsOperation)
		s.metrics.RecordRequest(s.provider.Name(), metricsOperation, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Str("mode", string(req.Mode)).
			Msg("failed to fetch directions")
		return nil, err
	}

	s.mu.Lock()
	if len(s.cache) >= s.maxEntries {
		s.evictExpired(now)
	}
	if len(s.cache) < s.maxEntries {
		s.cache[key] = cachedResponse{response: resp, expiresAt: now.Add(s.ttl)}
	}
	s.mu.Unlock()

	return resp, nil
}

// evictExpired must be called with mu held.
func (s *Service) evictExpired(now time.Time) {
	for k, v := range s.cache {
		if !now.Before(v.expiresAt) {
			delete(s.cache, k)
		}
	}
}

// CacheSize returns the number of cached responses.
func (s *Service) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func (s *Service) cacheKey(req Request) string {
	p := s.precision
	return fmt.Sprintf("%s:%.*f,%.*f:%.*f,%.*f", req.Mode,
		p, geo.RoundTo(req.Origin.Lat, p), p, geo.RoundTo(req.Origin.Lon, p),
		p, geo.RoundTo(req.Destination.Lat, p), p, geo.RoundTo(req.Destination.Lon, p))
}

func (s *Service) validate(req Request) error {
	if err := req.Origin.Validate(); err != nil {
		return &Error{Code: "INVALID_ORIGIN", Message: "invalid origin coordinates", Err: ErrInvalidRequest}
	}
	if err := req.Destination.Validate(); err != nil {
		return &Error{Code: "INVALID_DESTINATION", Message: "invalid destination coordinates", Err: ErrInvalidRequest}
	}
	if !req.Mode.Valid() {
		return &Error{Code: "INVALID_MODE", Message: fmt.Sprintf("unsupported mode %q", req.Mode), Err: ErrInvalidRequest}
	}
	return nil
}
