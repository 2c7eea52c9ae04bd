// Package service holds the business rules. It sits between the HTTP
// handlers and the repositories/collaborators:
//
//	Handler (HTTP) → Service (business rules) → Repository (DB)
//	               ↘ TokenService, PasswordService, mailer, summarizer
//
// Services never touch HTTP types. Every rule failure is an
// *apperror.AppError, so handlers can map it to a status code without
// knowing which rule fired.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/config"
	"github.com/sakif/cashflow-api/internal/mailer"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

const (
	minPasswordLength = 4
	minFullNameLength = 2

	msgInvalidCredentials = "Invalid email or password"
	msgInvalidRefresh     = "Invalid refresh token"
	msgInvalidResetToken  = "Invalid or expired password reset token"
)

// GoogleIdentity redeems a Google authorization code for the profile
// behind it. *auth.GoogleProvider implements it.
type GoogleIdentity interface {
	Exchange(ctx context.Context, code, verifier string) (*auth.GoogleUser, error)
}

// AuthConfig carries the settings AuthService reads at request time.
type AuthConfig struct {
	ResetPasswordURL    string
	CollaboratorTimeout time.Duration
	Categories          config.CategorySeed
}

// AuthService handles registration, sign-in and password recovery.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue/verify JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - google     GoogleIdentity            → nil disables Google sign-in
//   - mail       mailer.Sender             → password-reset emails
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	google    GoogleIdentity
	mail      mailer.Sender
	cfg       AuthConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	google GoogleIdentity,
	mail mailer.Sender,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = 20 * time.Second
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		google:    google,
		mail:      mail,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Session is the result of any successful sign-in. The handler returns
// the access token in the body and puts the refresh token in a cookie.
type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// Register creates a password account, seeds its default categories and
// signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	fullName := strings.TrimSpace(in.FullName)
	if utf8.RuneCountInString(fullName) < minFullNameLength {
		return nil, apperror.ValidationFailed("fullName", fmt.Sprintf("Full name must be at least %d characters", minFullNameLength))
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	// Best-effort pre-check; the unique index on lower(email) is the backstop.
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("User with this email already exists", map[string]any{"email": email})
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, FullName: fullName, PasswordHash: &hash}
	if err := s.users.CreateUser(ctx, user, s.cfg.Categories.Inflow, s.cfg.Categories.Outflow); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("userID", user.ID))

	return s.startSession(user, auth.IssuedViaLogin)
}

// Login checks email and password. Unknown email, Google-only account and
// wrong password all produce the same 401 so the response never reveals
// which accounts exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}
	if !user.HasPassword() {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	if err := s.passwords.Verify(*user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}

	return s.startSession(user, auth.IssuedViaLogin)
}

// Refresh trades a refresh token for a new access token and a rotated
// refresh token. The old refresh token keeps working until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized(msgInvalidRefresh)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized(msgInvalidRefresh)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}

	return s.startSession(user, auth.IssuedViaRefresh)
}

// Profile returns the user behind an access token.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("Authentication required")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}
	return user, nil
}

// LoginWithGoogle signs in with a Google authorization code.
//
// Resolution order:
//  1. an account already linked to this Google ID → sign in
//  2. an account with the same email → link it, mark the email verified
//  3. otherwise → create a password-less, verified account
func (s *AuthService) LoginWithGoogle(ctx context.Context, code, verifier string) (*Session, error) {
	if s.google == nil {
		return nil, apperror.Forbidden("Google sign-in is not enabled")
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "Authorization code is required")
	}

	exCtx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	gUser, err := s.google.Exchange(exCtx, code, verifier)
	switch {
	case errors.Is(err, auth.ErrGoogleCodeRejected):
		return nil, apperror.Unauthorized("Invalid Google authorization code")
	case errors.Is(err, auth.ErrGoogleIdentity):
		return nil, apperror.Unauthorized("Google account could not be verified")
	case err != nil:
		return nil, apperror.Upstream("Google sign-in failed", err)
	}

	user, err := s.users.GetUserByGoogleID(ctx, gUser.Sub)
	if err == nil {
		return s.startSession(user, auth.IssuedViaGoogle)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: loading user by google id: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(gUser.Email))
	user, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkGoogleAccount(ctx, user.ID, gUser.Sub); err != nil {
			return nil, fmt.Errorf("service/auth: linking google account: %w", err)
		}
		sub := gUser.Sub
		user.GoogleID = &sub
		user.IsEmailVerified = true
		s.logger.InfoContext(ctx, "google account linked", slog.String("userID", user.ID))

	case errors.Is(err, apperror.ErrNotFound):
		sub := gUser.Sub
		user = &model.User{
			Email:           email,
			FullName:        googleDisplayName(gUser),
			GoogleID:        &sub,
			IsEmailVerified: true,
		}
		if err := s.users.CreateUser(ctx, user, s.cfg.Categories.Inflow, s.cfg.Categories.Outflow); err != nil {
			return nil, fmt.Errorf("service/auth: creating google user: %w", err)
		}
		s.logger.InfoContext(ctx, "user registered via google", slog.String("userID", user.ID))

	default:
		return nil, fmt.Errorf("service/auth: loading user by email: %w", err)
	}

	return s.startSession(user, auth.IssuedViaGoogle)
}

// ForgotPassword emails a reset link to a registered address.
func (s *AuthService) ForgotPassword(ctx context.Context, rawEmail string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return &apperror.AppError{Err: apperror.ErrNotFound, Message: "User with this email does not exist"}
	}
	if err != nil {
		return fmt.Errorf("service/auth: loading user: %w", err)
	}

	token, err := s.tokens.IssuePasswordResetToken(user.Email)
	if err != nil {
		return fmt.Errorf("service/auth: issuing reset token: %w", err)
	}
	link, err := resetLink(s.cfg.ResetPasswordURL, token)
	if err != nil {
		return fmt.Errorf("service/auth: building reset link: %w", err)
	}

	msg, err := mailer.ResetPasswordEmail(user.Email, user.FullName, link, s.tokens.ResetTTL())
	if err != nil {
		return fmt.Errorf("service/auth: rendering reset email: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()
	if err := s.mail.Send(sendCtx, msg); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			return apperror.Forbidden("Password reset by email is not enabled")
		}
		return apperror.Upstream("Email sending failed", err)
	}

	// The email is already out; a failed bookkeeping write is logged only.
	if err := s.recordResetRequest(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "recording password reset request failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// ResetPassword sets a new password for the account a reset token names.
// The token is not consumed and stays valid until it expires.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	email, err := s.tokens.VerifyPasswordResetToken(token)
	if err != nil {
		return apperror.Unauthorized(msgInvalidResetToken)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service/auth: loading user for reset: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset", slog.String("userID", user.ID))
	return nil
}

func (s *AuthService) startSession(user *model.User, via auth.IssuedVia) (*Session, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, via)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token for %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing refresh token for %s: %w", user.ID, err)
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// recordResetRequest merges passwordResetRequestedAt into the user's
// metadata, keeping any other keys already there.
func (s *AuthService) recordResetRequest(ctx context.Context, user *model.User) error {
	meta := map[string]any{}
	if len(user.Metadata) > 0 {
		if err := json.Unmarshal(user.Metadata, &meta); err != nil {
			return fmt.Errorf("decoding metadata: %w", err)
		}
	}
	meta["passwordResetRequestedAt"] = s.now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	return s.users.UpdateMetadata(ctx, user.ID, data)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", apperror.ValidationFailed("email", "Invalid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperror.ValidationFailed("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}

func resetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func googleDisplayName(u *auth.GoogleUser) string {
	if name := strings.TrimSpace(u.Name); utf8.RuneCountInString(name) >= minFullNameLength {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
