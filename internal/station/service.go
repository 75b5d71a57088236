package station

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/geo"
)

// Lookup defaults and bounds.
const (
	DefaultNearbyRadiusKm = 5.0
	MaxNearbyRadiusKm     = 100.0
	DefaultNearbyLimit    = 10
	MaxNearbyLimit        = 50
	DefaultListLimit      = 20
	MaxListLimit          = 100
)

// OccupancyListener is notified after a station's live state changes.
type OccupancyListener interface {
	OccupancyChanged(event OccupancyEvent)
}

// ServiceConfig holds configuration for the station service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time
}

// Service provides station lookup and live state updates.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	listeners []OccupancyListener
}

// NewService creates a new station service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		now:    now,
	}
}

// Subscribe registers a listener for occupancy changes.
func (s *Service) Subscribe(l OccupancyListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// FindNear passes a proximity query straight to the repository.
func (s *Service) FindNear(ctx context.Context, q NearQuery) ([]*Station, error) {
	return s.repo.FindNear(ctx, q)
}

// Nearby returns operational stations within radiusKm of point.
// Zero values select the defaults; values above the bounds are clamped.
func (s *Service) Nearby(ctx context.Context, point geo.Point, radiusKm float64, limit int) ([]*Station, error) {
	if err := point.Validate(); err != nil {
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "location", Message: err.Error()}}}
	}
	if radiusKm < 0 {
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "radius", Message: "must not be negative"}}}
	}
	radiusKm = EffectiveRadiusKm(radiusKm)
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	if limit > MaxNearbyLimit {
		limit = MaxNearbyLimit
	}

	return s.repo.FindNear(ctx, NearQuery{
		Point:             point,
		MaxDistanceMeters: radiusKm * 1000,
		OperationalOnly:   true,
		Limit:             limit,
	})
}

// EffectiveRadiusKm applies the default and ceiling to a requested radius.
func EffectiveRadiusKm(radiusKm float64) float64 {
	switch {
	case radiusKm <= 0:
		return DefaultNearbyRadiusKm
	case radiusKm > MaxNearbyRadiusKm:
		return MaxNearbyRadiusKm
	}
	return radiusKm
}

// Get retrieves a station by ID.
func (s *Service) Get(ctx context.Context, id string) (*Station, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves a page of stations.
func (s *Service) List(ctx context.Context, limit int, cursor string) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, ListOptions{Limit: limit, Cursor: cursor})
}

// Create validates and stores a new station.
func (s *Service) Create(ctx context.Context, st *Station) (*Station, error) {
	if fieldErrors := validateStation(st); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := s.now()
	created := cloneStation(st)
	if created.ID == "" {
		created.ID = "stn_" + uuid.New().String()[:22]
	}
	if created.TotalSlots == 0 {
		created.TotalSlots = created.SlotsAvailable
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateOccupancy records a live state update and notifies listeners.
func (s *Service) UpdateOccupancy(ctx context.Context, id string, update OccupancyUpdate) (*Station, error) {
	if fieldErrors := validateOccupancy(update); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}
	if update.ObservedAt.IsZero() {
		update.ObservedAt = s.now()
	}

	st, err := s.repo.UpdateOccupancy(ctx, id, update)
	if err != nil {
		if !errors.Is(err, ErrStationNotFound) {
			s.logger.Error().Err(err).Str("station_id", id).Msg("failed to update occupancy")
		}
		return nil, err
	}

	event := OccupancyEvent{
		StationID:      st.ID,
		StationName:    st.Name,
		SlotsAvailable: st.SlotsAvailable,
		TotalSlots:     st.TotalSlots,
	}
	if st.Occupancy != nil {
		event.Occupancy = *st.Occupancy
	}

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l.OccupancyChanged(event)
	}

	s.logger.Debug().
		Str("station_id", st.ID).
		Int("slots_available", st.SlotsAvailable).
		Msg("occupancy updated")

	return st, nil
}

func validateStation(st *Station) []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(st.Name) == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	}
	if err := st.Location.Validate(); err != nil {
		errs = append(errs, models.FieldError{Field: "location", Message: err.Error()})
	}
	if st.SlotsAvailable < 0 {
		errs = append(errs, models.FieldError{Field: "slotsAvailable", Message: "must not be negative"})
	}
	if st.TotalSlots != 0 && st.TotalSlots < st.SlotsAvailable {
		errs = append(errs, models.FieldError{Field: "totalSlots", Message: "must be at least slotsAvailable"})
	}
	if st.Rating < 0 || st.Rating > 5 {
		errs = append(errs, models.FieldError{Field: "rating", Message: "must be between 0 and 5"})
	}

	return errs
}

func validateOccupancy(u OccupancyUpdate) []models.FieldError {
	var errs []models.FieldError

	check := func(field string, v *int) {
		if v != nil && *v < 0 {
			errs = append(errs, models.FieldError{Field: field, Message: "must not be negative"})
		}
	}
	check("currentOccupancy", u.CurrentOccupancy)
	check("queueLength", u.QueueLength)
	check("estimatedWaitTime", u.EstimatedWaitMinutes)
	check("slotsAvailable", u.SlotsAvailable)

	if u.CurrentOccupancy == nil && u.QueueLength == nil && u.EstimatedWaitMinutes == nil && u.SlotsAvailable == nil {
		errs = append(errs, models.FieldError{Field: "occupancy", Message: "at least one field is required"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
