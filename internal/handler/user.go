package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/bydbio/internal/auth"
	"github.com/sakif/bydbio/internal/model"
	"github.com/sakif/bydbio/internal/service"
)

// UserHandler serves profile pages and the follow graph.
//
// WHY A SEPARATE HANDLER?
// Each handler struct "owns" one area of functionality: UserHandler covers
// everything anchored on a user (profile, links, follow edges, suggestions),
// while feeds, posts, and notifications get their own handlers.
type UserHandler struct {
	profiles    *service.ProfileService
	connections *service.ConnectionService
	watch       *service.ProfileWatch
	logger      *slog.Logger
}

func NewUserHandler(
	profiles *service.ProfileService,
	connections *service.ConnectionService,
	watch *service.ProfileWatch,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		profiles:    profiles,
		connections: connections,
		watch:       watch,
		logger:      logger,
	}
}

// HandleGetProfile returns a user's public profile page.
//
// HTTP: GET /api/users/{username}
// Auth: Optional — authenticated viewers additionally get isFollowing.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	viewerID, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.profiles.GetByUsername(r.Context(), viewerID, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateProfile edits the authenticated user's own profile.
//
// HTTP: PUT /api/me/profile
// Auth: Required
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var upd service.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be valid JSON",
		})
		return
	}

	user, err := h.profiles.Update(r.Context(), userID, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleReplaceLinks swaps the authenticated user's entire link list.
//
// HTTP: PUT /api/me/links
// REQUEST BODY: [{"title":"Blog","url":"https://..."}, ...] in display order.
func (h *UserHandler) HandleReplaceLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var links []model.Link
	if err := json.NewDecoder(r.Body).Decode(&links); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be a JSON array of links",
		})
		return
	}

	saved, err := h.profiles.ReplaceLinks(r.Context(), userID, links)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleFollow creates a follow edge from the authenticated user.
//
// HTTP: POST /api/users/{id}/follow
//
// A repeat follow responds 200 just like the first one — the operation is
// idempotent. When the follow lands but its notification write fails, we
// still respond 200: the caller's action succeeded, and the lost
// notification is logged server-side.
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	followeeID := r.PathValue("id")

	if err := h.connections.Follow(r.Context(), userID, followeeID); err != nil {
		if errors.Is(err, service.ErrNotifyFailed) {
			h.logger.Warn("follow succeeded, notification lost",
				slog.String("followerID", userID),
				slog.String("followeeID", followeeID),
			)
			writeJSON(w, http.StatusOK, map[string]bool{"following": true})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": true})
}

// HandleUnfollow removes a follow edge. Idempotent — unfollowing someone
// never followed still responds 200.
//
// HTTP: DELETE /api/users/{id}/follow
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	followeeID := r.PathValue("id")

	if err := h.connections.Unfollow(r.Context(), userID, followeeID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": false})
}

// HandleFollowers lists who follows the user in the URL.
//
// HTTP: GET /api/users/{id}/followers
func (h *UserHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	list, err := h.connections.Followers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleFollowing lists who the user in the URL follows.
//
// HTTP: GET /api/users/{id}/following
func (h *UserHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	list, err := h.connections.Following(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleSuggested returns follow suggestions for the authenticated user.
//
// HTTP: GET /api/users/suggested?limit=10
func (h *UserHandler) HandleSuggested(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.connections.SuggestedUsers(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleWatchProfile streams live profile snapshots over Server-Sent Events.
//
// HTTP: GET /api/users/{username}/watch
//
// SSE (not WebSocket) because the stream is strictly one-way: the server
// pushes snapshots, the client never talks back. Standard EventSource on the
// frontend reconnects automatically.
//
// Each event is one JSON-encoded user snapshot. Delivery is latest-wins — a
// client that reads slowly gets the newest state, never a backlog.
func (h *UserHandler) HandleWatchProfile(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	viewerID, _ := auth.UserIDFromContext(r.Context())
	profile, err := h.profiles.GetByUsername(r.Context(), viewerID, r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := h.watch.Subscribe(profile.User.ID)
	defer cancel()

	// Send the current state immediately so the client never renders empty.
	writeSSE(w, *profile.User)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-updates:
			if !open {
				return
			}
			writeSSE(w, snapshot)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, user model.User) {
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
