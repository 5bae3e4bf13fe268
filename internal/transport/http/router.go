// Package http assembles the service's HTTP surface: the shared middleware
// chain, the authenticated API, the admin routes, and the operational
// endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetdocs/internal/audit"
	dochandler "fleetdocs/internal/document/handler"
	"fleetdocs/internal/platform/metrics"
	"fleetdocs/internal/platform/middleware"
	sweephandler "fleetdocs/internal/sweeper/handler"
	"fleetdocs/internal/transport/http/shared"
	verificationhandler "fleetdocs/internal/verification/handler"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.TokenValidator

	Documents    *dochandler.Handler
	Verification *verificationhandler.Handler
	Sweep        *sweephandler.Handler
	Audit        *audit.Handler

	// HealthChecks run on /healthz, one per dependent store. Nil map means
	// always healthy.
	HealthChecks map[string]func(context.Context) error

	RequestTimeout time.Duration
}

// NewRouter builds the full route tree.
func NewRouter(deps Dependencies) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		r.Post("/drivers/{driverID}/documents/upload-grant", deps.Documents.CreateUploadGrant)
		r.Get("/drivers/{driverID}/documents", deps.Documents.ListByDriver)
		r.Get("/drivers/{driverID}/verification", deps.Verification.Status)
		r.Get("/documents/{documentID}", deps.Documents.Get)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.Logger))

			r.Get("/documents", deps.Documents.ReviewQueue)
			r.Post("/documents/{documentID}/review", deps.Documents.Review)
			r.Post("/sweep", deps.Sweep.Trigger)
			r.Get("/drivers/{driverID}/audit", deps.Audit.ListByDriver)
		})
	})

	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}
