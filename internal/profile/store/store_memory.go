package store

import (
	"context"
	"sync"

	"fleetdocs/internal/profile/models"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/platform/sentinel"
)

// InMemory is the development and unit-test profile store.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.DriverID]*models.DriverProfile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.DriverID]*models.DriverProfile)}
}

func clone(p *models.DriverProfile) *models.DriverProfile {
	c := *p
	return &c
}

func (s *InMemory) FindByDriver(ctx context.Context, driverID id.DriverID) (*models.DriverProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[driverID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemory) Upsert(ctx context.Context, profile *models.DriverProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.DriverID] = clone(profile)
	return nil
}
