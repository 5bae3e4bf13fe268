// Package handler exposes the manual sweep trigger for operators.
package handler

import (
	"net/http"

	"fleetdocs/internal/sweeper/service"
	"fleetdocs/internal/transport/http/shared"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Trigger handles POST /admin/sweep. The response reports both passes,
// including per-document failures; a partially failed sweep is still a 200.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	result := h.svc.Sweep(r.Context())
	shared.WriteJSON(w, http.StatusOK, result)
}
