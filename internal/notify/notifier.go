// Package notify delivers near-expiry notifications to the platform's
// messaging layer. Delivery is an external collaborator; the sweeper only
// depends on the Notifier contract and its error result, which gates the
// notified-at stamp.
package notify

import (
	"context"
	"sync"
	"time"

	id "fleetdocs/pkg/domain"
)

// Notification is the payload delivered for one expiring document.
type Notification struct {
	DriverID     id.DriverID   `json:"driver_id"`
	DocumentID   id.DocumentID `json:"document_id"`
	DocumentType string        `json:"document_type"`
	ExpiryDate   time.Time     `json:"expiry_date"`
}

// Notifier acknowledges delivery by returning nil. A non-nil error means the
// document must not be stamped as notified so the next sweep retries it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// InMemory records notifications for tests and broker-less deployments.
type InMemory struct {
	mu   sync.Mutex
	sent []Notification
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (n *InMemory) Notify(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (n *InMemory) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
