// Package store persists driver documents. Implementations return
// pkg/platform/sentinel errors; the service layer translates them into coded
// domain errors.
package store

import (
	"context"
	"time"

	"fleetdocs/internal/document/models"
	id "fleetdocs/pkg/domain"
)

// Store is the canonical document persistence contract.
type Store interface {
	// Create inserts a new pending document.
	Create(ctx context.Context, doc *models.DriverDocument) error
	// FindByID loads one document. Inside a transaction-bound store the row
	// is locked FOR UPDATE so concurrent reviews serialize.
	FindByID(ctx context.Context, docID id.DocumentID) (*models.DriverDocument, error)
	// Update persists a mutated document after re-checking its invariants.
	Update(ctx context.Context, doc *models.DriverDocument) error
	// ListByDriver returns all documents a driver has submitted, newest first.
	ListByDriver(ctx context.Context, driverID id.DriverID) ([]*models.DriverDocument, error)
	// ListByStatus returns documents in the given status, oldest first, for
	// the admin review queue.
	ListByStatus(ctx context.Context, status models.DocumentStatus, limit int) ([]*models.DriverDocument, error)
	// ListPastExpiry returns approved documents whose expiry date is before
	// asOf (demotion pass candidates).
	ListPastExpiry(ctx context.Context, asOf time.Time, limit int) ([]*models.DriverDocument, error)
	// ListExpiringSoon returns approved documents expiring within
	// [from, until] that have not been notified yet.
	ListExpiringSoon(ctx context.Context, from, until time.Time, limit int) ([]*models.DriverDocument, error)
}
