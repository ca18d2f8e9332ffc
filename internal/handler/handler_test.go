package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bydbio/internal/auth"
	"github.com/sakif/bydbio/internal/handler"
	"github.com/sakif/bydbio/internal/model"
	sqliteRepo "github.com/sakif/bydbio/internal/repository/sqlite"
	"github.com/sakif/bydbio/internal/service"
)

// HANDLER TESTING STRATEGY:
// Handlers read the authenticated user from the request context, and the
// context key lives unexported inside the auth package — exactly as it
// should. So instead of poking context values in, these tests go through the
// front door: a real chi router with the real auth middleware, backed by an
// in-memory SQLite database. Each test registers users over HTTP and carries
// the session cookie, the same way a browser would.
//
// This doubles as a wiring test: if a route, middleware, or dependency is
// hooked up wrong, these tests catch it.

// testAPI bundles the router with request helpers.
type testAPI struct {
	t      *testing.T
	router http.Handler
}

// newTestAPI builds the full application stack over a fresh :memory: database.
// The route table mirrors internal/server.setupRoutes.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4) // low bcrypt cost keeps tests fast

	watch := service.NewProfileWatch()
	notificationService := service.NewNotificationService(db, db, logger)
	connectionService := service.NewConnectionService(db, db, notificationService, watch, logger)
	subscriptionService := service.NewSubscriptionService(db, db, notificationService, logger)
	postService := service.NewPostService(db, db, notificationService, logger)
	eventService := service.NewEventService(db, notificationService, logger)
	feedService := service.NewFeedService(db, db, db, logger)
	profileService := service.NewProfileService(db, db, watch, logger)
	authService := service.NewAuthService(db, tokens, passwords, logger)

	authHandler := handler.NewAuthHandler(nil, authService, logger) // no OAuth in tests
	userHandler := handler.NewUserHandler(profileService, connectionService, watch, logger)
	feedHandler := handler.NewFeedHandler(feedService, logger)
	postHandler := handler.NewPostHandler(postService, logger)
	eventHandler := handler.NewEventHandler(eventService, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/users/{username}", userHandler.HandleGetProfile)
			r.Get("/users/{id}/followers", userHandler.HandleFollowers)
			r.Get("/users/{id}/following", userHandler.HandleFollowing)
			r.Get("/posts/{id}", postHandler.HandleGet)
			r.Get("/events/{id}", eventHandler.HandleGet)
		})

		r.Post("/users/{username}/contact", notificationHandler.HandleSubmitContact)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Put("/me/profile", userHandler.HandleUpdateProfile)
			r.Put("/me/links", userHandler.HandleReplaceLinks)

			r.Get("/users/suggested", userHandler.HandleSuggested)
			r.Post("/users/{id}/follow", userHandler.HandleFollow)
			r.Delete("/users/{id}/follow", userHandler.HandleUnfollow)

			r.Get("/feed", feedHandler.HandleHome)
			r.Post("/posts", postHandler.HandleCreate)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
			r.Post("/posts/{id}/like", postHandler.HandleToggleLike)

			r.Post("/events", eventHandler.HandleCreate)
			r.Post("/events/{id}/rsvp", eventHandler.HandleToggleRSVP)

			r.Post("/subscriptions/toggle", subscriptionHandler.HandleToggle)
			r.Get("/subscriptions", subscriptionHandler.HandleList)

			r.Get("/notifications", notificationHandler.HandleList)
			r.Get("/notifications/unread", notificationHandler.HandleUnreadCount)
			r.Post("/notifications/{id}/read", notificationHandler.HandleMarkRead)
			r.Post("/notifications/read-all", notificationHandler.HandleMarkAllRead)
			r.Get("/contact-inbox", notificationHandler.HandleContactInbox)
		})
	})

	return &testAPI{t: t, router: router}
}

// do performs a request against the test router. body may be nil, a raw
// string (sent verbatim, for malformed-JSON cases), or any value to be
// JSON-encoded. cookie may be nil for anonymous requests.
func (a *testAPI) do(method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// register creates an account over HTTP and returns the created user plus
// the session cookie the server set.
func (a *testAPI) register(username string) (model.User, *http.Cookie) {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/auth/register", nil, map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse battery",
	})
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("register %q: expected 201, got %d: %s", username, rr.Code, rr.Body.String())
	}

	var user model.User
	decodeBody(a.t, rr, &user)

	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return user, c
		}
	}
	a.t.Fatalf("register %q: no session cookie set", username)
	return model.User{}, nil
}

// createPost publishes a post as the cookie's user and returns it.
func (a *testAPI) createPost(cookie *http.Cookie, body string, privacy model.Privacy) model.Post {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/api/posts", cookie, map[string]string{
		"body":    body,
		"privacy": string(privacy),
	})
	if rr.Code != http.StatusCreated {
		a.t.Fatalf("create post: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var post model.Post
	decodeBody(a.t, rr, &post)
	return post
}

// follow makes the cookie's user follow the target and fails the test on error.
func (a *testAPI) follow(cookie *http.Cookie, followeeID string) {
	a.t.Helper()

	rr := a.do(http.MethodPost, "/api/users/"+followeeID+"/follow", cookie, nil)
	if rr.Code != http.StatusOK {
		a.t.Fatalf("follow %s: expected 200, got %d: %s", followeeID, rr.Code, rr.Body.String())
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
