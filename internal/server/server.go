// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the wiring layer: it connects the database, services,
// handlers and middleware, and owns the server lifecycle. Keeping it out
// of main.go lets tests build the whole router against a temp database.
//
// DEPENDENCY FLOW:
//
//	sqlite.DB ─┬─ UserRepository ─────────┐
//	           ├─ CategoryRepository ─────┼─ services ─ handlers ─ chi router
//	           ├─ TransactionRepository ──┤
//	           └─ SummaryRepository ──────┘
//
// External collaborators (Google, email, text generation) are built by
// the caller and passed in, so tests can substitute fakes.
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

	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/config"
	"github.com/sakif/cashflow-api/internal/handler"
	"github.com/sakif/cashflow-api/internal/mailer"
	"github.com/sakif/cashflow-api/internal/middleware"
	sqliteRepo "github.com/sakif/cashflow-api/internal/repository/sqlite"
	"github.com/sakif/cashflow-api/internal/service"
	"github.com/sakif/cashflow-api/internal/summarizer"
)

// Collaborators are the external services the API calls out to. A nil
// Google disables Google sign-in; nil Mailer or Summarizer make the
// dependent endpoints answer 502.
type Collaborators struct {
	Google     service.GoogleIdentity
	Mailer     mailer.Sender
	Summarizer summarizer.Generator
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown so
// the WAL is checkpointed and the file lock released.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, applies migrations and builds the router.
func New(cfg *config.Config, collab Collaborators, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		ResetSecret:   cfg.ResetTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ResetTTL:      cfg.ResetTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("creating password service: %w", err)
	}

	if collab.Mailer == nil {
		collab.Mailer = mailer.Disabled{}
	}
	if collab.Summarizer == nil {
		collab.Summarizer = summarizer.Disabled{}
	}

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
	s.setupRoutes(tokens, passwords, collab)
	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /health
//	POST   /v1/register | /v1/login | /v1/google | /v1/logout
//	GET    /v1/refresh                               (refresh cookie)
//	POST   /v1/forgot-password | /v1/reset-password
//	GET    /v1/profile                               (bearer)
//	GET    /v1/categories/{kind}[/stats]             (bearer)
//	POST   /v1/categories/{kind}                     (bearer)
//	DELETE /v1/categories/{kind}/{id}                (bearer)
//	GET    /v1/transactions/{kind}                   (bearer)
//	POST   /v1/transactions/{kind}                   (bearer)
//	DELETE /v1/transactions/{kind}/{id}              (bearer)
//	GET    /v1/overview[/summary]                    (bearer)
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: every later log line can carry the id
//  2. RealIP: remote address from proxy headers
//  3. Logger: one line per request
//  4. Recoverer: a panic becomes a 500 instead of killing the process
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService, collab Collaborators) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	authService := service.NewAuthService(s.db, tokens, passwords, collab.Google, collab.Mailer, service.AuthConfig{
		ResetPasswordURL:    s.config.ResetPasswordURL,
		CollaboratorTimeout: s.config.CollaboratorTimeout,
		Categories:          config.DefaultCategories(),
	}, s.logger)
	categoryService := service.NewCategoryService(s.db, s.logger)
	transactionService := service.NewTransactionService(s.db, s.db, s.logger)
	overviewService := service.NewOverviewService(s.db, s.logger)
	summaryService := service.NewSummaryService(s.db, s.db, collab.Summarizer, s.config.CollaboratorTimeout, s.logger)

	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Secure: s.config.IsProduction(),
		MaxAge: tokens.RefreshTTL(),
	}, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, s.logger)
	overviewHandler := handler.NewOverviewHandler(overviewService, summaryService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/google", authHandler.HandleGoogle)
		r.Get("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/reset-password", authHandler.HandleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/profile", authHandler.HandleProfile)

			r.Route("/categories/{kind}", func(r chi.Router) {
				r.Get("/", categoryHandler.HandleList)
				r.Post("/", categoryHandler.HandleCreate)
				r.Get("/stats", categoryHandler.HandleStats)
				r.Delete("/{id}", categoryHandler.HandleDelete)
			})

			r.Route("/transactions/{kind}", func(r chi.Router) {
				r.Get("/", transactionHandler.HandleList)
				r.Post("/", transactionHandler.HandleCreate)
				r.Delete("/{id}", transactionHandler.HandleDelete)
			})

			r.Get("/overview", overviewHandler.HandleOverview)
			r.Get("/overview/summary", overviewHandler.HandleSummary)
		})
	})
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the database
//
// WriteTimeout leaves room for one summary generation, the slowest
// request the API serves.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.config.CollaboratorTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
