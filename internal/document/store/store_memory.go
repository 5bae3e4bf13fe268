package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetdocs/internal/document/models"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/platform/sentinel"
)

// InMemory is the development and unit-test store. It clones on every read
// and write so callers never share mutable state with the map.
type InMemory struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.DriverDocument
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[id.DocumentID]*models.DriverDocument)}
}

func clone(doc *models.DriverDocument) *models.DriverDocument {
	c := *doc
	return &c
}

func (s *InMemory) Create(ctx context.Context, doc *models.DriverDocument) error {
	if err := doc.CheckInvariants(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	s.docs[doc.ID] = clone(doc)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, docID id.DocumentID) (*models.DriverDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(doc), nil
}

func (s *InMemory) Update(ctx context.Context, doc *models.DriverDocument) error {
	if err := doc.CheckInvariants(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.docs[doc.ID] = clone(doc)
	return nil
}

func (s *InMemory) ListByDriver(ctx context.Context, driverID id.DriverID) ([]*models.DriverDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DriverDocument
	for _, doc := range s.docs {
		if doc.DriverID == driverID {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByStatus(ctx context.Context, status models.DocumentStatus, limit int) ([]*models.DriverDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DriverDocument
	for _, doc := range s.docs {
		if doc.Status == status {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *InMemory) ListPastExpiry(ctx context.Context, asOf time.Time, limit int) ([]*models.DriverDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DriverDocument
	for _, doc := range s.docs {
		if doc.Status == models.StatusApproved && doc.ExpiryDate != nil && doc.ExpiryDate.Before(asOf) {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return truncate(out, limit), nil
}

func (s *InMemory) ListExpiringSoon(ctx context.Context, from, until time.Time, limit int) ([]*models.DriverDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DriverDocument
	for _, doc := range s.docs {
		if doc.Status != models.StatusApproved || doc.ExpiryDate == nil || doc.ExpirationNotifiedAt != nil {
			continue
		}
		if !doc.ExpiryDate.Before(from) && !doc.ExpiryDate.After(until) {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return truncate(out, limit), nil
}

func truncate(docs []*models.DriverDocument, limit int) []*models.DriverDocument {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}
