// Package main is the entry point for the CashFlow API.
//
// The main package stays small. Its job is to:
//  1. read configuration from the environment
//  2. build the logger and the external collaborators
//  3. hand everything to internal/server and block
//
// All actual logic lives in imported packages, so the whole router can be
// built in tests without going through main.
//
// COMMANDS:
//
//	cashflow-api            same as "serve"
//	cashflow-api serve      run the HTTP API
//	cashflow-api migrate    apply database migrations and exit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/config"
	"github.com/sakif/cashflow-api/internal/mailer"
	"github.com/sakif/cashflow-api/internal/mailer/gmail"
	"github.com/sakif/cashflow-api/internal/repository/sqlite"
	"github.com/sakif/cashflow-api/internal/server"
	"github.com/sakif/cashflow-api/internal/summarizer"
	"github.com/sakif/cashflow-api/internal/summarizer/gemini"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	rootCmd := &cobra.Command{
		Use:   "cashflow-api",
		Short: "Personal cash-flow tracking API",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	rootCmd.AddCommand(serve, newMigrateCommand())
	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			collab, err := buildCollaborators(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("failed to configure collaborators", slog.String("error", err.Error()))
				return err
			}

			srv, err := server.New(cfg, collab, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				return err
			}

			// Start blocks until SIGINT/SIGTERM.
			if err := srv.Start(); err != nil {
				logger.Error("server error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if err := sqlite.RunMigrations(cfg.DBPath); err != nil {
				logger.Error("migration failed", slog.String("error", err.Error()))
				return err
			}
			logger.Info("migrations applied", slog.String("database", cfg.DBPath))
			return nil
		},
	}
}

// setup loads and validates configuration and builds the logger. Validation
// failures are printed before any logger exists.
func setup() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	return cfg, newLogger(cfg), nil
}

// newLogger writes human-readable text in development and JSON in
// production, where logs are shipped to an aggregator.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// buildCollaborators wires Google sign-in, email delivery and summary
// generation from whatever credentials are configured. Each one is
// optional; the server answers the dependent endpoints with an error
// when it is missing.
func buildCollaborators(ctx context.Context, cfg *config.Config, logger *slog.Logger) (server.Collaborators, error) {
	var collab server.Collaborators

	// Leave Google as a nil interface when disabled. A nil
	// *auth.GoogleProvider stored in the interface would not compare equal
	// to nil.
	if cfg.GoogleEnabled() {
		collab.Google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google sign-in is disabled")
	}

	switch {
	case cfg.MailEnabled():
		sender, err := gmail.New(ctx, gmail.Options{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RefreshToken: cfg.GmailRefreshToken,
			From:         cfg.EmailFrom,
		})
		if err != nil {
			return collab, fmt.Errorf("creating gmail sender: %w", err)
		}
		collab.Mailer = sender
	case cfg.IsProduction():
		logger.Warn("GMAIL_REFRESH_TOKEN not set, password reset emails cannot be sent")
		collab.Mailer = mailer.Disabled{}
	default:
		logger.Info("email delivery not configured, reset emails will be logged")
		collab.Mailer = mailer.NewLogSender(logger)
	}

	if cfg.SummaryEnabled() {
		gen, err := gemini.New(ctx, gemini.Options{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return collab, fmt.Errorf("creating gemini client: %w", err)
		}
		collab.Summarizer = gen
	} else {
		logger.Warn("GEMINI_API_KEY not set, monthly summaries are disabled")
		collab.Summarizer = summarizer.Disabled{}
	}

	return collab, nil
}
