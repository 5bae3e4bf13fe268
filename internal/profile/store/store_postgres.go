package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fleetdocs/internal/profile/models"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/platform/sentinel"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists profiles in the driver_profiles table.
type Postgres struct {
	q querier
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

// NewPostgresTx binds the store to an open transaction so the review path can
// update document and aggregate atomically.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

func (s *Postgres) FindByDriver(ctx context.Context, driverID id.DriverID) (*models.DriverProfile, error) {
	var (
		p          models.DriverProfile
		dbDriverID uuid.UUID
		verifiedAt sql.NullTime
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT driver_id, status, documents_complete, documents_verified_at, updated_at
		FROM driver_profiles
		WHERE driver_id = $1`,
		driverID.String(),
	).Scan(&dbDriverID, &p.Status, &p.DocumentsComplete, &verifiedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.DriverID = id.DriverID(dbDriverID)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.DocumentsVerifiedAt = &t
	}
	return &p, nil
}

func (s *Postgres) Upsert(ctx context.Context, profile *models.DriverProfile) error {
	var verifiedAt sql.NullTime
	if profile.DocumentsVerifiedAt != nil {
		verifiedAt = sql.NullTime{Time: *profile.DocumentsVerifiedAt, Valid: true}
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO driver_profiles (driver_id, status, documents_complete, documents_verified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (driver_id) DO UPDATE SET
			status = EXCLUDED.status,
			documents_complete = EXCLUDED.documents_complete,
			documents_verified_at = EXCLUDED.documents_verified_at,
			updated_at = EXCLUDED.updated_at`,
		profile.DriverID.String(), profile.Status, profile.DocumentsComplete, verifiedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
