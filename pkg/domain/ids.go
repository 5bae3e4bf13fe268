// Package domain holds strongly typed identifiers shared across modules.
// Distinct types keep a DriverID from ever being passed where a DocumentID is
// expected; the mistake becomes a compile error instead of a data bug.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "fleetdocs/pkg/domain-errors"
)

// DriverID identifies the driver who owns documents. The driver entity itself
// lives outside this service; we only hold the foreign identifier.
type DriverID uuid.UUID

// DocumentID identifies a single driver document record.
type DocumentID uuid.UUID

// UserID identifies an authenticated caller (driver or reviewer).
type UserID uuid.UUID

func (id DriverID) String() string   { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }

func (id DriverID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }

// The identifier types implement encoding.TextMarshaler so they render as the
// canonical UUID string in JSON, not as a byte array.

func (id DriverID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *DriverID) UnmarshalText(b []byte) error {
	parsed, err := ParseDriverID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseDriverID validates and converts a string into a DriverID.
func ParseDriverID(s string) (DriverID, error) {
	u, err := parseUUID(s, "driver id")
	return DriverID(u), err
}

// ParseDocumentID validates and converts a string into a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document id")
	return DocumentID(u), err
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, what+" must not be the nil UUID")
	}
	return u, nil
}

// TenantID namespaces storage keys in multi-deployment setups. It is an
// opaque slug, not a UUID, and may be empty (single-tenant deployment).
type TenantID string

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

func (t TenantID) String() string { return string(t) }

// ParseTenantID validates a tenant slug. Empty input is valid and means
// "no tenant namespace".
func ParseTenantID(s string) (TenantID, error) {
	if s == "" {
		return "", nil
	}
	if !tenantIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "tenant id must be a lowercase alphanumeric slug")
	}
	return TenantID(s), nil
}
