package audit

import (
	"context"
	"sync"

	id "fleetdocs/pkg/domain"
)

// InMemoryStore keeps audit events in memory for tests and development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByDriver(ctx context.Context, driverID id.DriverID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.DriverID == driverID {
			out = append(out, e)
		}
	}
	return out, nil
}
