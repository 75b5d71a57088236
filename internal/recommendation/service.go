package recommendation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/geo"
	"github.com/chargeroute/chargeroute/internal/station"
)

// Defaults for ServiceConfig.
const (
	DefaultMaxSearchRadiusKm = 100.0
	DefaultCandidateLimit    = 20
	DefaultAdvisoryTimeout   = 15 * time.Second
	DefaultTimezone          = "Asia/Kolkata"
	DefaultPromptCandidates  = 10

	// CriticalBatteryPercentage is the level below which no search is made.
	CriticalBatteryPercentage = 5.0

	searchBufferRatio = 0.3
	maxSearchBufferKm = 50.0
)

const tracerName = "github.com/chargeroute/chargeroute/internal/recommendation"

// StationFinder looks up stations around a point, nearest first.
type StationFinder interface {
	FindNear(ctx context.Context, q station.NearQuery) ([]*station.Station, error)
}

// Advisor is the external advisory model. Consult makes a single call and
// returns the model's free-text reply.
type Advisor interface {
	Consult(ctx context.Context, prompt string) (string, error)
}

// Flags exposes the runtime switches the service honors.
type Flags interface {
	IsAdvisoryDisabled(ctx context.Context) bool
	AdvisoryCandidateLimit(ctx context.Context) int
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// RequestRecorder receives advisory call measurements and terminal outcomes.
type RequestRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordOutcome(outcome string)
}

// ServiceConfig holds configuration for the recommendation service.
type ServiceConfig struct {
	Stations StationFinder
	Advisor  Advisor
	Logger   zerolog.Logger

	// Metrics is optional.
	Metrics RequestRecorder

	// Flags is optional; without it the advisory model is always consulted.
	Flags Flags

	// Clock is optional and defaults to SystemClock.
	Clock Clock

	// MaxSearchRadiusKm caps the search radius (default: 100 km).
	MaxSearchRadiusKm float64

	// CandidateLimit caps the repository query (default: 20).
	CandidateLimit int

	// AdvisoryTimeout bounds the advisory call (default: 15s).
	AdvisoryTimeout time.Duration

	// DefaultTimezone is used when a query has none (default: Asia/Kolkata).
	DefaultTimezone string
}

// Service recommends a station for a driver.
type Service struct {
	stations          StationFinder
	advisor           Advisor
	flags             Flags
	clock             Clock
	logger            zerolog.Logger
	metrics           RequestRecorder
	tracer            trace.Tracer
	maxSearchRadiusKm float64
	candidateLimit    int
	advisoryTimeout   time.Duration
	defaultTimezone   string
}

// NewService creates a new recommendation service.
func NewService(cfg ServiceConfig) *Service {
	maxRadius := cfg.MaxSearchRadiusKm
	if maxRadius <= 0 {
		maxRadius = DefaultMaxSearchRadiusKm
	}

	limit := cfg.CandidateLimit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	timeout := cfg.AdvisoryTimeout
	if timeout <= 0 {
		timeout = DefaultAdvisoryTimeout
	}

	tz := cfg.DefaultTimezone
	if tz == "" {
		tz = DefaultTimezone
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	return &Service{
		stations:          cfg.Stations,
		advisor:           cfg.Advisor,
		flags:             cfg.Flags,
		clock:             clock,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		tracer:            otel.Tracer(tracerName),
		maxSearchRadiusKm: maxRadius,
		candidateLimit:    limit,
		advisoryTimeout:   timeout,
		defaultTimezone:   tz,
	}
}

// SearchRadiusKm returns the search radius for a remaining range: the range
// plus a 30% buffer of at most 50 km, capped at the configured ceiling.
func (s *Service) SearchRadiusKm(rangeLeftKm float64) float64 {
	radius := rangeLeftKm + math.Min(rangeLeftKm*searchBufferRatio, maxSearchBufferKm)
	return math.Min(radius, s.maxSearchRadiusKm)
}

// validated is a query that passed validation.
type validated struct {
	battery  float64
	rangeKm  float64
	location geo.Point
	tzName   string
	loc      *time.Location
}

// Recommend runs one recommendation request. Validation failures return a
// *ValidationError and repository failures a *RepositoryError; every other
// outcome, including advisory failure, is reported through Result.
func (s *Service) Recommend(ctx context.Context, q Query) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "recommendation.Recommend")
	defer span.End()

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &s.logger
	}

	m := newRequestMachine(*logger)
	done := func(r *Result) (*Result, error) {
		r.States = m.path()
		span.SetAttributes(attribute.String("recommendation.outcome", string(r.Outcome)))
		if s.metrics != nil {
			s.metrics.RecordOutcome(string(r.Outcome))
		}
		return r, nil
	}

	v, err := s.validate(q)
	if err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("recommendation.battery_percentage", v.battery),
		attribute.Float64("recommendation.range_left_km", v.rangeKm),
	)

	now := s.clock.Now().In(v.loc)

	if v.battery < CriticalBatteryPercentage {
		if err := m.fire(ctx, eventCritical); err != nil {
			return nil, err
		}
		logger.Info().Float64("battery_percentage", v.battery).Msg("critical battery, skipping station search")
		return done(&Result{
			Outcome: OutcomeCriticalBattery,
			Advice: Advice{
				UrgencyLevel: UrgencyCritical,
				Reason:       criticalBatteryRecommendation,
			},
			Message:     MessageCriticalBattery,
			RangeLeftKm: v.rangeKm,
			Timezone:    v.tzName,
			GeneratedAt: now,
		})
	}

	if err := m.fire(ctx, eventSearch); err != nil {
		return nil, err
	}

	radiusKm := s.SearchRadiusKm(v.rangeKm)
	stations, err := s.stations.FindNear(ctx, station.NearQuery{
		Point:             v.location,
		MaxDistanceMeters: radiusKm * 1000,
		OperationalOnly:   true,
		Limit:             s.candidateLimit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "station lookup failed")
		logger.Error().Err(err).Float64("radius_km", radiusKm).Msg("station lookup failed")
		return nil, &RepositoryError{Err: err}
	}

	base := Result{
		StationsFound:  len(stations),
		SearchRadiusKm: radiusKm,
		RangeLeftKm:    v.rangeKm,
		Timezone:       v.tzName,
		GeneratedAt:    now,
	}

	if len(stations) == 0 {
		if err := m.fire(ctx, eventNoStations); err != nil {
			return nil, err
		}
		base.Outcome = OutcomeNoStationsFound
		base.Message = MessageNoStationsFound
		return done(&base)
	}

	if err := m.fire(ctx, eventEnrich); err != nil {
		return nil, err
	}
	day := strings.ToLower(now.Weekday().String())
	tod := TimeOfDayOf(now)
	enriched := Enrich(stations, v.location, day, tod)

	if err := m.fire(ctx, eventFilter); err != nil {
		return nil, err
	}
	reachable := FilterReachable(enriched, v.rangeKm)
	if len(reachable) == 0 {
		if err := m.fire(ctx, eventNoReachable); err != nil {
			return nil, err
		}
		base.Outcome = OutcomeNoReachableStation
		base.Message = MessageNoReachableStation
		return done(&base)
	}

	ranked := Rank(reachable)
	base.Candidates = ranked
	base.StationsAnalyzed = len(ranked)

	if err := m.fire(ctx, eventConsult); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("recommendation.candidates", len(ranked)))

	advice, reason, advErr := s.consult(ctx, v, day, tod, ranked)
	if advErr != nil {
		if err := m.fire(ctx, eventAdvisoryFailed); err != nil {
			return nil, err
		}
		logger.Warn().Err(advErr).Int("candidates", len(ranked)).Msg("advisory step failed, using fallback ranking")

		pick, _ := Fallback(ranked)
		base.Outcome = OutcomeFallback
		base.Fallback = true
		base.FallbackReason = reason
		base.FallbackError = publicAdvisoryError(advErr)
		base.Station = &pick
		base.Advice = Advice{
			RecommendedStation: pick.Name,
			Reason:             reason,
			UrgencyLevel:       normalizeUrgency("", v.battery),
		}
		return done(&base)
	}

	if err := m.fire(ctx, eventFinalize); err != nil {
		return nil, err
	}
	advice.UrgencyLevel = normalizeUrgency(advice.UrgencyLevel, v.battery)
	base.Outcome = OutcomeRecommended
	base.Advice = advice
	for i := range ranked {
		if ranked[i].Name == advice.RecommendedStation {
			match := ranked[i]
			base.Station = &match
			break
		}
	}
	if base.Station == nil {
		logger.Info().Str("recommended_station", advice.RecommendedStation).Msg("advisory pick matches no candidate by name")
	}

	return done(&base)
}

// consult asks the advisory model for a pick. On failure it returns the
// fallback reason for the caller along with an error wrapping
// ErrAdvisoryUnavailable or ErrAdvisoryMalformed.
func (s *Service) consult(ctx context.Context, v validated, day string, tod TimeOfDay, ranked []EnrichedStation) (Advice, string, error) {
	if s.flags != nil && s.flags.IsAdvisoryDisabled(ctx) {
		return Advice{}, FallbackReasonDisabled, fmt.Errorf("%w: %w", ErrAdvisoryUnavailable, errAdvisoryDisabled)
	}
	if s.advisor == nil {
		return Advice{}, FallbackReasonUnavailable, fmt.Errorf("%w: no advisor configured", ErrAdvisoryUnavailable)
	}

	candidates := ranked
	limit := DefaultPromptCandidates
	if s.flags != nil {
		if n := s.flags.AdvisoryCandidateLimit(ctx); n > 0 {
			limit = n
		}
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	prompt := BuildPrompt(PromptContext{
		BatteryPercentage: v.battery,
		RangeLeftKm:       v.rangeKm,
		Day:               day,
		Time:              tod,
		Timezone:          v.tzName,
	}, candidates)

	callCtx, cancel := context.WithTimeout(ctx, s.advisoryTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.advisor.Consult(callCtx, prompt)
	if s.metrics != nil {
		s.metrics.RecordRequest(advisorName(s.advisor), "consult", time.Since(start), err)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrAdvisoryMalformed):
			return Advice{}, FallbackReasonParse, err
		case errors.Is(err, ErrAdvisoryUnavailable):
			return Advice{}, FallbackReasonUnavailable, err
		}
		return Advice{}, FallbackReasonUnavailable, fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, err)
	}

	advice, err := ParseAdvice(reply)
	if err != nil {
		return Advice{}, FallbackReasonParse, err
	}
	return advice, "", nil
}

// publicAdvisoryError maps an advisory failure to the fixed text returned to
// clients. Upstream error detail stays in the logs.
func publicAdvisoryError(err error) string {
	switch {
	case errors.Is(err, ErrAdvisoryMalformed):
		return ErrorAdvisoryMalformed
	case errors.Is(err, errAdvisoryDisabled):
		return ErrorAdvisoryDisabled
	default:
		return ErrorAdvisoryUnavailable
	}
}

// Validation messages.
const (
	msgBattery     = "batteryPercentage must be a number between 0 and 100"
	msgRange       = "rangeLeft must be a positive number"
	msgCoordinates = "currentLocation.coordinates must be an array with [longitude, latitude]"
	msgTimezone    = "timezone must be a valid IANA time zone name"
)

func (s *Service) validate(q Query) (validated, error) {
	var (
		v    validated
		errs []models.FieldError
	)

	if q.BatteryPercentage == nil || !isFinite(*q.BatteryPercentage) || *q.BatteryPercentage < 0 || *q.BatteryPercentage > 100 {
		errs = append(errs, models.FieldError{Field: "batteryPercentage", Message: msgBattery})
	} else {
		v.battery = *q.BatteryPercentage
	}

	if q.RangeLeftKm == nil || !isFinite(*q.RangeLeftKm) || *q.RangeLeftKm <= 0 {
		errs = append(errs, models.FieldError{Field: "rangeLeft", Message: msgRange})
	} else {
		v.rangeKm = *q.RangeLeftKm
	}

	if p, err := geo.NewPoint(q.Coordinates); err != nil {
		errs = append(errs, models.FieldError{Field: "currentLocation.coordinates", Message: msgCoordinates})
	} else {
		v.location = p
	}

	v.tzName = q.Timezone
	if v.tzName == "" {
		v.tzName = s.defaultTimezone
	}
	loc, err := time.LoadLocation(v.tzName)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "timezone", Message: msgTimezone})
	} else {
		v.loc = loc
	}

	if len(errs) > 0 {
		return validated{}, &ValidationError{Errors: errs}
	}
	return v, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func advisorName(a Advisor) string {
	if named, ok := a.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "advisory"
}
