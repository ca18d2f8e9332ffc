// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
//   main.go builds Config → Server.New() creates:
//   sqlite.DB → services (connection, subscription, notification, post,
//   event, feed, profile, auth) → handlers → routes
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bydbio/internal/auth"
	"github.com/sakif/bydbio/internal/handler"
	"github.com/sakif/bydbio/internal/middleware"
	sqliteRepo "github.com/sakif/bydbio/internal/repository/sqlite"
	"github.com/sakif/bydbio/internal/service"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port   int
	DBPath string // path to the SQLite database file

	JWTSecret string // HMAC secret for access tokens (required)

	// GitHub OAuth credentials. All three empty = password auth only;
	// the /auth/github/* routes then respond 404.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. Create the database connection (sqlite.New)
//  2. Create the service layer with the DB (each service receives the
//     repository interfaces it needs, never the concrete sqlite.DB type)
//  3. Create the handlers with the services
//  4. Wire handlers to routes
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware, services, handlers, and routes.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/register                  → create email/password account
//	POST   /auth/login                     → password login
//	GET    /auth/github/login              → redirect to GitHub
//	GET    /auth/github/callback           → OAuth callback
//	POST   /auth/logout                    → clear session cookie
//
//	GET    /api/me                         → current user            [auth]
//	PUT    /api/me/profile                 → edit own profile        [auth]
//	PUT    /api/me/links                   → replace own link list   [auth]
//
//	GET    /api/users/suggested            → follow suggestions      [auth]
//	GET    /api/users/{username}           → public profile          [optional auth]
//	GET    /api/users/{username}/watch     → live profile stream SSE [optional auth]
//	POST   /api/users/{username}/contact   → contact form            [public]
//	POST   /api/users/{id}/follow          → follow                  [auth]
//	DELETE /api/users/{id}/follow          → unfollow                [auth]
//	GET    /api/users/{id}/followers       → follower list           [public]
//	GET    /api/users/{id}/following       → following list          [public]
//
//	GET    /api/feed                       → home feed               [auth]
//	POST   /api/posts                      → create post             [auth]
//	GET    /api/posts/{id}                 → read post               [optional auth]
//	DELETE /api/posts/{id}                 → delete own post         [auth]
//	POST   /api/posts/{id}/like            → toggle like             [auth]
//
//	POST   /api/events                     → create event            [auth]
//	GET    /api/events/{id}                → read event              [public]
//	POST   /api/events/{id}/rsvp           → toggle RSVP             [auth]
//
//	POST   /api/subscriptions/toggle       → toggle content sub      [auth]
//	GET    /api/subscriptions              → list own subs           [auth]
//
//	GET    /api/notifications              → social notifications    [auth]
//	GET    /api/notifications/unread       → badge count             [auth]
//	POST   /api/notifications/{id}/read    → mark one read           [auth]
//	POST   /api/notifications/read-all     → mark all read           [auth]
//	GET    /api/contact-inbox              → contact submissions     [auth]
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Auth Utilities ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// === Services ===
	// s.db (sqlite.DB) implements every repository interface; each service
	// receives only the slices it programs against.
	watch := service.NewProfileWatch()
	notificationService := service.NewNotificationService(s.db, s.db, s.logger)
	connectionService := service.NewConnectionService(s.db, s.db, notificationService, watch, s.logger)
	subscriptionService := service.NewSubscriptionService(s.db, s.db, notificationService, s.logger)
	postService := service.NewPostService(s.db, s.db, notificationService, s.logger)
	eventService := service.NewEventService(s.db, notificationService, s.logger)
	feedService := service.NewFeedService(s.db, s.db, s.db, s.logger)
	profileService := service.NewProfileService(s.db, s.db, watch, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(github, authService, s.logger)
	userHandler := handler.NewUserHandler(profileService, connectionService, watch, s.logger)
	feedHandler := handler.NewFeedHandler(feedService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	eventHandler := handler.NewEventHandler(eventService, s.logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	// === Auth Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Public + optional-auth reads
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/users/{username}", userHandler.HandleGetProfile)
			r.Get("/users/{username}/watch", userHandler.HandleWatchProfile)
			r.Get("/users/{id}/followers", userHandler.HandleFollowers)
			r.Get("/users/{id}/following", userHandler.HandleFollowing)
			r.Get("/posts/{id}", postHandler.HandleGet)
			r.Get("/events/{id}", eventHandler.HandleGet)
		})

		// Public writes
		r.Post("/users/{username}/contact", notificationHandler.HandleSubmitContact)

		// Authenticated routes
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

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the profile watch SSE stream stays open for as
		// long as the client watches. A global write deadline would cut
		// every stream at that mark.
		IdleTimeout: 60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
