package audit

import (
	"context"
	"time"

	id "fleetdocs/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose, enabling
// different retention policies per category.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: every
	// document lifecycle decision lands here.
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers events useful for debugging and visibility.
	CategoryOperations EventCategory = "operations"
)

// Action names the audited operation.
type Action string

const (
	ActionDocumentSubmitted Action = "document_submitted"
	ActionDocumentApproved  Action = "document_approved"
	ActionDocumentRejected  Action = "document_rejected"
	ActionDocumentExpired   Action = "document_expired"
	ActionExpiryNotified    Action = "expiry_notified"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Action    Action        `json:"action"`
	Timestamp time.Time     `json:"timestamp"`

	DriverID   id.DriverID   `json:"driver_id"`
	DocumentID id.DocumentID `json:"document_id"`

	// ActorID is who performed the action: the reviewer on decisions, the
	// submitting driver on uploads, empty for scheduled sweeps.
	ActorID string `json:"actor_id,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// Request correlation, captured at the HTTP boundary.
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store is the append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByDriver(ctx context.Context, driverID id.DriverID) ([]Event, error)
}
