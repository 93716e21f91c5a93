package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/diaguru/core/logger"
	"github.com/kilianp07/diaguru/core/scheduler"
)

type scheduleHandler struct {
	orch  *scheduler.Orchestrator
	locks *CaptureLock
	log   logger.Logger
}

func (h *scheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "auth_error", "missing owner identity", nil)
		return
	}

	var body scheduleRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body", nil)
		return
	}
	if body.CaptureID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "captureId is required", nil)
		return
	}

	unlock := h.locks.Lock(owner)
	defer unlock()

	res, err := h.orch.Schedule(r.Context(), body.toRequest(owner))
	if err != nil {
		h.writeScheduleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseBody(res))
}

func (h *scheduleHandler) writeScheduleError(w http.ResponseWriter, err error) {
	var se *scheduler.ScheduleError
	if errors.As(err, &se) {
		writeError(w, se.Status, se.Reason, se.Message, se.Details)
		return
	}
	h.log.Errorf("unexpected scheduling error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error   string         `json:"error"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, reason, message string, details map[string]any) {
	writeJSON(w, status, errorBody{Error: message, Reason: reason, Details: details})
}
