// Package handler exposes the verification aggregate over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetdocs/internal/transport/http/shared"
	"fleetdocs/internal/verification/service"
	id "fleetdocs/pkg/domain"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /drivers/{driverID}/verification.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	driverID, err := id.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	status, err := h.svc.Status(r.Context(), driverID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, status)
}
