// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"coachledger/internal/domain/model"
)

// EventsHandler handles recording-event submissions.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests. Events with an
// external id are idempotent at the transport level: resubmitting the
// same id acknowledges as a duplicate without re-queueing.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var event model.RecordingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateEvent(event); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Mark as seen first so a concurrent resubmission loses the race.
	dedupeID := ingestID(event)
	if dedupeID != "" && h.deps.SeenAndRecord(r.Context(), dedupeID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), event); !ok {
		if dedupeID != "" {
			h.deps.Unrecord(r.Context(), dedupeID)
		}
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}

// validateEvent enforces the minimal wire contract. Sparse events are
// legal input; only the partition tag is mandatory.
func validateEvent(event model.RecordingEvent) error {
	if strings.TrimSpace(event.DataSource) == "" {
		return errors.New("missing data_source")
	}
	if event.DurationSeconds < 0 {
		return errors.New("negative duration_seconds")
	}
	return nil
}

// ingestID derives the transport-level dedupe key. Events without an
// external id skip transport dedupe; the fingerprint index still
// protects the ledger downstream.
func ingestID(event model.RecordingEvent) string {
	id := strings.TrimSpace(event.ExternalID)
	if id == "" {
		return ""
	}
	return event.DataSource + "/" + id
}
