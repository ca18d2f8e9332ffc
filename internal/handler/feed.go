package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/bydbio/internal/auth"
	"github.com/sakif/bydbio/internal/service"
)

// FeedHandler serves the authenticated user's home feed.
type FeedHandler struct {
	svc    *service.FeedService
	logger *slog.Logger
}

func NewFeedHandler(svc *service.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{svc: svc, logger: logger}
}

// HandleHome returns the feed page.
//
// HTTP: GET /api/feed
// Auth: Required
//
// RESPONSE: {"items": [...], "degraded": false}
// degraded=true means some backend chunks failed and the page may be missing
// posts; clients should render what's there with a soft warning rather than
// an error screen.
func (h *FeedHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	page, err := h.svc.Home(r.Context(), userID)
	if err != nil {
		h.logger.Error("feed assembly failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
