package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetdocs/internal/transport/http/shared"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
)

// Handler exposes the per-driver audit trail to admins.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// ListByDriver handles GET /admin/drivers/{driverID}/audit.
func (h *Handler) ListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := id.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	events, err := h.store.ListByDriver(r.Context(), driverID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable"))
		return
	}
	if events == nil {
		events = []Event{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
