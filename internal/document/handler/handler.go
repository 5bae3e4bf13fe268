// Package handler exposes the document registry over HTTP. Handlers parse
// and respond; all decisions live in the service.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fleetdocs/internal/document/models"
	"fleetdocs/internal/document/service"
	"fleetdocs/internal/transport/http/shared"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// CreateUploadGrant handles POST /drivers/{driverID}/documents/upload-grant.
func (h *Handler) CreateUploadGrant(w http.ResponseWriter, r *http.Request) {
	driverID, err := id.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req models.UploadGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	grant, err := h.svc.CreateUploadGrant(r.Context(), driverID, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, grant)
}

// ListByDriver handles GET /drivers/{driverID}/documents.
func (h *Handler) ListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := id.ParseDriverID(chi.URLParam(r, "driverID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	docs, err := h.svc.ListByDriver(r.Context(), driverID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// Get handles GET /documents/{documentID}. The response carries a time-boxed
// download URL for the stored bytes.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	view, err := h.svc.Get(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

// ReviewQueue handles GET /admin/documents?status=pending&limit=50.
func (h *Handler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	docs, err := h.svc.ReviewQueue(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// Review handles POST /admin/documents/{documentID}/review.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	result, err := h.svc.Review(r.Context(), docID, req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
