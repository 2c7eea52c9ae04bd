// Package config loads process configuration from the environment.
//
// Values come from real environment variables, optionally seeded from a
// .env file in the working directory. Every key has a development default
// except the token secrets, which Validate requires.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minSecretLength = 16
)

type Config struct {
	// HTTP Server
	Env  string
	Port int

	// Database
	DBPath string

	// Logging
	LogLevel string

	// Tokens
	AccessTokenSecret  string
	RefreshTokenSecret string
	ResetTokenSecret   string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	ResetTokenTTL      time.Duration
	BcryptCost         int

	// Google sign-in and Gmail delivery share the OAuth client.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GmailRefreshToken  string
	EmailFrom          string
	ResetPasswordURL   string

	// Text generation
	GeminiAPIKey string
	GeminiModel  string

	// Upper bound for one call to an external collaborator.
	CollaboratorTimeout time.Duration
}

// Load reads configuration. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("APP_ENV", EnvDevelopment),
		Port: getEnvInt("PORT", 8080),

		DBPath: getEnv("DB_PATH", "data/cashflow.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
		RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
		ResetTokenSecret:   getEnv("RESET_TOKEN_SECRET", ""),
		AccessTokenTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		ResetTokenTTL:      getEnvDuration("RESET_TOKEN_TTL", 24*time.Hour),
		BcryptCost:         getEnvInt("BCRYPT_COST", 12),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:3000/oauth"),
		GmailRefreshToken:  getEnv("GMAIL_REFRESH_TOKEN", ""),
		EmailFrom:          getEnv("EMAIL_FROM", "CashFlow <no-reply@cashflow.local>"),
		ResetPasswordURL:   getEnv("RESET_PASSWORD_URL", "http://localhost:3000/reset-password"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 20*time.Second),
	}
}

// IsProduction reports whether cookies should be marked Secure and logs
// emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// GoogleEnabled reports whether Google sign-in can be offered.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// MailEnabled reports whether password-reset emails can be delivered.
func (c *Config) MailEnabled() bool {
	return c.GoogleEnabled() && c.GmailRefreshToken != ""
}

// SummaryEnabled reports whether monthly summaries can be generated.
func (c *Config) SummaryEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Validate validates the configuration and returns an error listing every problem found.
func (c *Config) Validate() error {
	var errors []string

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errors = append(errors, fmt.Sprintf("invalid APP_ENV '%s': must be '%s' or '%s'", c.Env, EnvDevelopment, EnvProduction))
	}

	if c.Port < 1 || c.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL '%s': must be debug, info, warn or error", c.LogLevel))
	}

	secrets := []struct {
		key   string
		value string
	}{
		{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
		{"REFRESH_TOKEN_SECRET", c.RefreshTokenSecret},
		{"RESET_TOKEN_SECRET", c.ResetTokenSecret},
	}
	for _, s := range secrets {
		if len(s.value) < minSecretLength {
			errors = append(errors, fmt.Sprintf("%s must be at least %d characters", s.key, minSecretLength))
		}
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errors = append(errors, "ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		errors = append(errors, "token TTLs must be positive durations")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errors = append(errors, fmt.Sprintf("ACCESS_TOKEN_TTL %v must be shorter than REFRESH_TOKEN_TTL %v", c.AccessTokenTTL, c.RefreshTokenTTL))
	}

	// bcrypt.MinCost and bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid BCRYPT_COST %d: must be between 4 and 31", c.BcryptCost))
	}

	if c.CollaboratorTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid COLLABORATOR_TIMEOUT %v: must be at least 1 second", c.CollaboratorTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
