// Package store persists the driver profile verification aggregate.
package store

import (
	"context"

	"fleetdocs/internal/profile/models"
	id "fleetdocs/pkg/domain"
)

// Store is the profile aggregate persistence contract.
type Store interface {
	// FindByDriver loads the aggregate, sentinel.ErrNotFound when the driver
	// has no profile row yet.
	FindByDriver(ctx context.Context, driverID id.DriverID) (*models.DriverProfile, error)
	// Upsert writes the aggregate, creating the row when absent.
	Upsert(ctx context.Context, profile *models.DriverProfile) error
}
