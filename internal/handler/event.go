package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/bydbio/internal/auth"
	"github.com/sakif/bydbio/internal/service"
)

// EventHandler serves events and RSVPs.
type EventHandler struct {
	svc    *service.EventService
	logger *slog.Logger
}

func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

type createEventRequest struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
}

// HandleCreate publishes a new event by the authenticated user.
//
// HTTP: POST /api/events
// REQUEST BODY: {"title": "...", "startsAt": "2026-09-12T18:00:00Z"}
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be valid JSON",
		})
		return
	}

	event, err := h.svc.Create(r.Context(), userID, req.Title, req.StartsAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// HandleGet returns one event.
//
// HTTP: GET /api/events/{id}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleToggleRSVP flips the authenticated user's RSVP on an event.
//
// HTTP: POST /api/events/{id}/rsvp
// RESPONSE: {"attending": true|false}
func (h *EventHandler) HandleToggleRSVP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	eventID := r.PathValue("id")

	attending, err := h.svc.ToggleRSVP(r.Context(), userID, eventID)
	if err != nil && !errors.Is(err, service.ErrNotifyFailed) {
		writeError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("rsvp succeeded, notification lost",
			slog.String("userID", userID),
			slog.String("eventID", eventID),
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"attending": attending})
}
