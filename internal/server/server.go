// Package server is the composition root: it builds services and handlers
// from their dependencies, mounts them on a chi router, and runs the HTTP
// server until it receives SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/handler"
	"github.com/sakif/gitfolio/internal/middleware"
	"github.com/sakif/gitfolio/internal/repository/sqlstore"
	"github.com/sakif/gitfolio/internal/service"
)

// Config holds the settings the HTTP layer itself needs.
type Config struct {
	Port int
	// BaseURL prefixes the share links handed back for portfolios.
	BaseURL         string
	SecureCookies   bool
	ShutdownTimeout time.Duration
}

// Deps are the long-lived collaborators built by the caller. The server takes
// ownership of DB and closes it when Start returns.
type Deps struct {
	DB      *sqlstore.DB
	Tokens  *auth.TokenService
	APIKeys *auth.APIKeyVerifier
	GitHub  service.GitHubReader
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *middleware.Metrics
}

type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("server: database is required")
	case deps.Tokens == nil:
		return nil, errors.New("server: token service is required")
	case deps.APIKeys == nil:
		return nil, errors.New("server: API key verifier is required")
	case deps.GitHub == nil:
		return nil, errors.New("server: GitHub client is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the fully wired router; tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts every route. Middleware runs in the order added:
// request ID, real IP, panic recovery, request logging, then metrics.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	if s.deps.Metrics != nil {
		s.router.Use(s.deps.Metrics.Middleware)
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	userService := service.NewUserService(s.deps.DB, s.logger)
	portfolioService := service.NewPortfolioService(s.deps.DB, s.config.BaseURL, s.logger)
	sessionService := service.NewSessionService(userService, s.deps.Tokens, s.logger)
	profileService := service.NewProfileService(s.deps.DB, s.deps.GitHub, s.logger)

	users := handler.NewUserHandler(userService, s.logger)
	portfolios := handler.NewPortfolioHandler(portfolioService, s.logger)
	sessions := handler.NewSessionHandler(sessionService, s.deps.Tokens, s.config.SecureCookies, s.logger)
	me := handler.NewMeHandler(sessionService, portfolioService, s.logger)
	view := handler.NewViewHandler(profileService, s.logger)
	health := handler.NewHealthHandler(s.deps.DB, s.logger)

	s.router.Get("/healthz", health.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/users", users.HandleCreate)

		r.Post("/session/login", sessions.HandleLogin)
		r.Post("/session/signup", sessions.HandleSignup)
		r.Post("/session/logout", sessions.HandleLogout)

		r.Get("/view/{username}", view.HandleView)

		// Operator surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAPIKey(s.deps.APIKeys))

			r.Get("/users", users.HandleFind)
			r.Put("/users", users.HandleUpdate)
			r.Delete("/users", users.HandleDelete)

			r.Get("/portfolios", portfolios.HandleList)
			r.Post("/portfolios", portfolios.HandleCreate)
			r.Put("/portfolios/active", portfolios.HandleActivate)
			r.Delete("/portfolios", portfolios.HandleDelete)
			r.Get("/portfolios/check", portfolios.HandleCheck)
		})

		// Signed-in user surface.
		r.Route("/me", func(r chi.Router) {
			r.Use(auth.RequireSession(s.deps.Tokens))

			r.Get("/", me.HandleMe)
			r.Get("/portfolios", me.HandleList)
			r.Post("/portfolios", me.HandleRegister)
			r.Put("/portfolios/active", me.HandleSwitch)
			r.Delete("/portfolios/{username}", me.HandleRemove)
		})
	})
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.deps.DB.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("base_url", s.config.BaseURL),
			slog.String("database", string(s.deps.DB.Dialect())),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
