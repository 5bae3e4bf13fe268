// Package shared centralizes JSON response writing so every handler produces
// the same envelope: payloads as-is, errors as {"error": kind} with detailed
// messages only when debug mode is enabled.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "fleetdocs/pkg/domain-errors"
)

var debugMessages bool

// EnableDebugMessages switches error responses to include the domain message.
// Called once at startup; production deployments leave it off so callers only
// see the stable error kind.
func EnableDebugMessages() { debugMessages = true }

// WriteJSON writes a JSON payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a domain error into the uniform error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if debugMessages {
		body.Message = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
