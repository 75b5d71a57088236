package driver

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for
// local development and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	drivers map[string]*Driver
	byEmail map[string]string
	byPhone map[string]string
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		drivers: make(map[string]*Driver),
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
	}
}

// Create stores a new driver.
func (r *InMemoryRepository) Create(_ context.Context, d *Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[d.Email]; ok {
		return ErrDriverExists
	}
	if d.Phone != "" {
		if _, ok := r.byPhone[d.Phone]; ok {
			return ErrDriverExists
		}
		r.byPhone[d.Phone] = d.ID
	}

	r.drivers[d.ID] = cloneDriver(d)
	r.byEmail[d.Email] = d.ID
	return nil
}

// Get returns a driver by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return cloneDriver(d), nil
}

// FindByEmail returns a driver by email.
func (r *InMemoryRepository) FindByEmail(_ context.Context, email string) (*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return cloneDriver(r.drivers[id]), nil
}

// UpdateLocation replaces the driver's current location.
func (r *InMemoryRepository) UpdateLocation(_ context.Context, id string, loc CurrentLocation) (*Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	d.CurrentLocation = &loc
	d.UpdatedAt = loc.UpdatedAt
	return cloneDriver(d), nil
}

func cloneDriver(d *Driver) *Driver {
	c := *d
	if d.Vehicle != nil {
		v := *d.Vehicle
		c.Vehicle = &v
	}
	if d.CurrentLocation != nil {
		l := *d.CurrentLocation
		c.CurrentLocation = &l
	}
	return &c
}
