package models

import (
	"time"

	id "fleetdocs/pkg/domain"
)

// ProfileStatus mirrors the externally owned driver profile status. The
// aggregator only ever flips between pending_documents and active; any other
// value (suspension, deletion) belongs to the platform and is left untouched.
type ProfileStatus string

const (
	StatusPendingDocuments ProfileStatus = "pending_documents"
	StatusActive           ProfileStatus = "active"
)

// DriverProfile carries the cached verification aggregate on the driver
// profile entity. The verification service is its only writer; the document
// registry merely triggers recomputation.
type DriverProfile struct {
	DriverID             id.DriverID   `json:"driver_id"`
	Status               ProfileStatus `json:"status"`
	DocumentsComplete    bool          `json:"documents_complete"`
	DocumentsVerifiedAt  *time.Time    `json:"documents_verified_at,omitempty"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// NewProfile returns the initial aggregate for a driver with no approved
// documents yet.
func NewProfile(driverID id.DriverID, now time.Time) *DriverProfile {
	return &DriverProfile{
		DriverID:  driverID,
		Status:    StatusPendingDocuments,
		UpdatedAt: now,
	}
}

// ApplyComplete records newly reached completeness. Returns false when the
// aggregate already reflects completeness, making recomputation idempotent.
func (p *DriverProfile) ApplyComplete(now time.Time) bool {
	changed := false
	if !p.DocumentsComplete {
		p.DocumentsComplete = true
		p.DocumentsVerifiedAt = &now
		changed = true
	}
	// Activate only from pending_documents; other statuses are not ours.
	if p.Status == StatusPendingDocuments {
		p.Status = StatusActive
		changed = true
	}
	if changed {
		p.UpdatedAt = now
	}
	return changed
}

// ApplyIncomplete records lost completeness (expiry sweep, rejection after
// approval). Returns false when nothing changed.
func (p *DriverProfile) ApplyIncomplete(now time.Time) bool {
	changed := false
	if p.DocumentsComplete {
		p.DocumentsComplete = false
		changed = true
	}
	if p.Status == StatusActive {
		p.Status = StatusPendingDocuments
		changed = true
	}
	if changed {
		p.UpdatedAt = now
	}
	return changed
}
