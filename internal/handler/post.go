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

// PostHandler serves post CRUD and likes.
type PostHandler struct {
	svc    *service.PostService
	logger *slog.Logger
}

func NewPostHandler(svc *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{svc: svc, logger: logger}
}

type createPostRequest struct {
	Body    string        `json:"body"`
	Privacy model.Privacy `json:"privacy"`
}

// HandleCreate publishes a new post by the authenticated user.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"body": "...", "privacy": "public|followers|private"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "request body must be valid JSON",
		})
		return
	}

	post, err := h.svc.Create(r.Context(), userID, req.Body, req.Privacy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleGet returns one post, subject to its privacy.
//
// HTTP: GET /api/posts/{id}
// Auth: Optional — anonymous viewers see public posts only.
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	post, err := h.svc.Get(r.Context(), viewerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes the authenticated user's own post.
//
// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleLike flips the authenticated user's like on a post.
//
// HTTP: POST /api/posts/{id}/like
// RESPONSE: {"liked": true|false}
//
// Like Follow, a lost notification doesn't fail the request — the like
// itself landed.
func (h *PostHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	postID := r.PathValue("id")

	liked, err := h.svc.ToggleLike(r.Context(), userID, postID)
	if err != nil && !errors.Is(err, service.ErrNotifyFailed) {
		writeError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("like succeeded, notification lost",
			slog.String("userID", userID),
			slog.String("postID", postID),
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}
