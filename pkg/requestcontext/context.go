// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http. Tests inject a fixed clock through WithTime.
package requestcontext

import (
	"context"
	"time"

	id "fleetdocs/pkg/domain"
)

type (
	userIDKey     struct{}
	rolesKey      struct{}
	requestIDKey  struct{}
	clientInfoKey struct{}
	timeKey       struct{}
)

// WithUserID records the authenticated caller.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated caller or the zero value when unset.
func UserID(ctx context.Context) id.UserID {
	v, _ := ctx.Value(userIDKey{}).(id.UserID)
	return v
}

// WithRoles records the caller's validated role claims.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, rolesKey{}, roles)
}

// Roles returns the caller's role claims, nil when unset.
func Roles(ctx context.Context) []string {
	v, _ := ctx.Value(rolesKey{}).([]string)
	return v
}

// HasRole reports whether the caller carries the given role.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range Roles(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// WithRequestID records the correlation id assigned by middleware.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id or an empty string.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// ClientInfo carries the network facts the audit trail records about a
// caller. Middleware fills it from the request; empty fields mean the
// operation did not originate from HTTP (scheduled sweeps).
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithClientInfo records the caller's network details.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// GetClientInfo returns the caller's network details or the zero value.
func GetClientInfo(ctx context.Context) ClientInfo {
	v, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return v
}

// WithTime pins the request clock. Tests use this to make transition
// timestamps and expiry comparisons deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the pinned request clock, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
