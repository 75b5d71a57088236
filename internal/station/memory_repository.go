package station

import (
	"context"
	"sort"
	"sync"

	"github.com/chargeroute/chargeroute/internal/geo"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	stations map[string]*Station
}

// NewInMemoryRepository creates a new in-memory station repository.
func NewInMemoryRepository(stations ...*Station) *InMemoryRepository {
	r := &InMemoryRepository{
		stations: make(map[string]*Station, len(stations)),
	}
	for _, s := range stations {
		r.stations[s.ID] = cloneStation(s)
	}
	return r
}

// FindNear returns stations within range of the query point, nearest first.
func (r *InMemoryRepository) FindNear(_ context.Context, q NearQuery) ([]*Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type hit struct {
		station  *Station
		distance float64
	}

	var hits []hit
	for _, s := range r.stations {
		if q.OperationalOnly && !s.IsOperational {
			continue
		}
		d := geo.DistanceMeters(q.Point, s.Location)
		if d > q.MaxDistanceMeters {
			continue
		}
		hits = append(hits, hit{station: s, distance: d})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].station.ID < hits[j].station.ID
	})

	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	result := make([]*Station, 0, len(hits))
	for _, h := range hits {
		result = append(result, cloneStation(h.station))
	}
	return result, nil
}

// Get retrieves a station by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stations[id]
	if !ok {
		return nil, ErrStationNotFound
	}
	return cloneStation(s), nil
}

// List retrieves stations ordered by ID, starting after the cursor.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	ids := make([]string, 0, len(r.stations))
	for id := range r.stations {
		if opts.Cursor != "" && id <= opts.Cursor {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &ListResult{}
	for i, id := range ids {
		if i == limit {
			result.NextCursor = ids[i-1]
			break
		}
		result.Items = append(result.Items, cloneStation(r.stations[id]))
	}
	return result, nil
}

// Create stores a new station.
func (r *InMemoryRepository) Create(_ context.Context, s *Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stations[s.ID] = cloneStation(s)
	return nil
}

// UpdateOccupancy applies a live state update.
func (r *InMemoryRepository) UpdateOccupancy(_ context.Context, id string, update OccupancyUpdate) (*Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stations[id]
	if !ok {
		return nil, ErrStationNotFound
	}
	applyOccupancy(s, update)
	return cloneStation(s), nil
}

// applyOccupancy merges update into s.
func applyOccupancy(s *Station, update OccupancyUpdate) {
	occ := Occupancy{}
	if s.Occupancy != nil {
		occ = *s.Occupancy
	}
	if update.CurrentOccupancy != nil {
		occ.CurrentOccupancy = *update.CurrentOccupancy
	}
	if update.QueueLength != nil {
		occ.QueueLength = *update.QueueLength
	}
	if update.EstimatedWaitMinutes != nil {
		occ.EstimatedWaitMinutes = *update.EstimatedWaitMinutes
	}
	occ.LastUpdated = update.ObservedAt
	s.Occupancy = &occ

	if update.SlotsAvailable != nil {
		s.SlotsAvailable = *update.SlotsAvailable
	}
	s.UpdatedAt = update.ObservedAt
}

// cloneStation returns a deep copy of s.
func cloneStation(s *Station) *Station {
	cpy := *s
	if s.PeakWindows != nil {
		cpy.PeakWindows = append([]PeakWindow(nil), s.PeakWindows...)
	}
	if s.ConnectorTypes != nil {
		cpy.ConnectorTypes = append([]string(nil), s.ConnectorTypes...)
	}
	if s.Occupancy != nil {
		occ := *s.Occupancy
		cpy.Occupancy = &occ
	}
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
