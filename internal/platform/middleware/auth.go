package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/requestcontext"
)

// Claims is the already-validated claim set the core relies on. Token
// verification happens in the validator; handlers and services only ever see
// these fields through the request context.
type Claims struct {
	Subject id.UserID
	Roles   []string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// AdminRole is the capability required for review and sweep endpoints.
const AdminRole = "admin"

// RequireAuth validates the bearer token and stores subject and roles in the
// request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			after, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := validator.ValidateToken(after)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), claims.Subject)
			ctx = requestcontext.WithRoles(ctx, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin role. Must run after RequireAuth.
// The check happens here, before any handler or service mutation.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requestcontext.HasRole(r.Context(), AdminRole) {
				logger.WarnContext(r.Context(), "forbidden - admin role required",
					"user_id", requestcontext.UserID(r.Context()).String(),
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}
