// Package service exposes the HTTP JSON API: authentication endpoints and
// the circle endpoints backed by the lifecycle engine.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/circlerush/backend/internal/lifecycle"
	"github.com/circlerush/backend/internal/middleware"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// errorBody is the uniform error payload.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a domain error to an HTTP status and writes it.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrUnauthorized),
		errors.Is(err, lifecycle.ErrNotMember):
		status = http.StatusForbidden
	case errors.Is(err, lifecycle.ErrCircleNotFound),
		errors.Is(err, lifecycle.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrDuplicateCircle),
		errors.Is(err, lifecycle.ErrAlreadyMember),
		errors.Is(err, lifecycle.ErrAlreadyInvited),
		errors.Is(err, lifecycle.ErrAlreadyCompleted),
		errors.Is(err, lifecycle.ErrLastAdmin):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// decode parses the request body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return lifecycle.ErrValidation
	}
	return nil
}

// callerFrom builds the engine identity from the auth middleware context.
func callerFrom(r *http.Request) lifecycle.Identity {
	ctx := r.Context()
	return lifecycle.Identity{
		UserID:      middleware.GetUserID(ctx),
		Email:       middleware.GetEmail(ctx),
		DisplayName: middleware.GetDisplayName(ctx),
	}
}
