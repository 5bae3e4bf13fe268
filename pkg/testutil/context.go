// Package testutil holds shared helpers for unit tests: request contexts
// with pinned identity and clock, and JSON HTTP helpers.
package testutil

import (
	"context"
	"time"

	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/requestcontext"
)

// FrozenTime is the pinned clock most tests run at.
var FrozenTime = time.Date(2026, time.August, 23, 10, 30, 0, 0, time.UTC)

// Context returns a request context with a pinned clock and request id.
func Context() context.Context {
	ctx := requestcontext.WithTime(context.Background(), FrozenTime)
	return requestcontext.WithRequestID(ctx, "test-request")
}

// AuthenticatedContext is Context plus a caller identity and roles.
func AuthenticatedContext(userID id.UserID, roles ...string) context.Context {
	ctx := requestcontext.WithUserID(Context(), userID)
	return requestcontext.WithRoles(ctx, roles)
}
