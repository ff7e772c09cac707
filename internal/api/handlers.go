// Package api implements the HTTP REST API for synthpi.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sdrworks/synthpi/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the interface the handlers use to interact with the device.
type Controller interface {
	Status() models.Status
	SetFrequency(ctx context.Context, req models.FrequencyRequest) (models.Status, *models.AppError)
	SetReference(ctx context.Context, req models.ReferenceRequest) (models.Status, *models.AppError)
	SetOutput(ctx context.Context, upd models.OutputUpdate) (models.Status, *models.AppError)
}

// EventBus is the interface for subscribing to status change events.
type EventBus interface {
	Subscribe(id string) <-chan models.Status
	Unsubscribe(id string)
}

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *Handlers) setFrequency(w http.ResponseWriter, r *http.Request) {
	var req models.FrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON body"))
		return
	}
	status, appErr := h.ctrl.SetFrequency(r.Context(), req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) setReference(w http.ResponseWriter, r *http.Request) {
	var req models.ReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON body"))
		return
	}
	status, appErr := h.ctrl.SetReference(r.Context(), req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) setOutput(w http.ResponseWriter, r *http.Request) {
	var upd models.OutputUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON body"))
		return
	}
	status, appErr := h.ctrl.SetOutput(r.Context(), upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}
