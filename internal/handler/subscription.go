package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/bydbio/internal/auth"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/service"
)

// SubscriptionHandler serves content subscriptions: "watch this job listing
// / offer / event for updates".
type SubscriptionHandler struct {
	svc    *service.SubscriptionService
	logger *slog.Logger
}

func NewSubscriptionHandler(svc *service.SubscriptionService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, logger: logger}
}

type toggleSubscriptionRequest struct {
	ContentID   string            `json:"contentId"`
	ContentType model.ContentType `json:"contentType"`
	AuthorID    string            `json:"authorId"`
	Title       string            `json:"title"`
}

// HandleToggle flips the authenticated user's subscription to a content item.
//
// HTTP: POST /api/subscriptions/toggle
// RESPONSE: {"subscribed": true|false}
func (h *SubscriptionHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req toggleSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be valid JSON",
		})
		return
	}

	subscribed, err := h.svc.Toggle(r.Context(), userID, model.Subscription{
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		AuthorID:    req.AuthorID,
		Title:       req.Title,
	})
	if err != nil && !errors.Is(err, service.ErrNotifyFailed) {
		writeError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("subscribe succeeded, notification lost",
			slog.String("userID", userID),
			slog.String("contentID", req.ContentID),
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

// HandleList returns everything the authenticated user subscribes to.
//
// HTTP: GET /api/subscriptions
func (h *SubscriptionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	list, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
