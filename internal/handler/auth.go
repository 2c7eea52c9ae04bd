package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/auth"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/service"
)

// RefreshCookieName is the cookie that carries the refresh token.
const RefreshCookieName = "cashflow_refresh"

// refreshCookiePath limits the cookie to API routes.
const refreshCookiePath = "/v1"

// AuthService is the subset of *service.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, in service.LoginInput) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
	LoginWithGoogle(ctx context.Context, code, verifier string) (*service.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// CookieConfig controls how the refresh cookie is written.
type CookieConfig struct {
	Secure bool          // HTTPS only; on in production
	MaxAge time.Duration // lifetime, normally the refresh-token TTL
}

// AuthHandler serves registration, sign-in and password recovery.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin / HandleGoogle → start a session
//   - HandleRefresh  → trade the refresh cookie for a new access token
//   - HandleLogout   → clear the refresh cookie
//   - HandleProfile  → return the signed-in user
//   - HandleForgotPassword / HandleResetPassword → password recovery
//
// A session is split in two: the access token goes in the response body
// and the refresh token in an HttpOnly cookie that scripts cannot read.
type AuthHandler struct {
	auth   AuthService
	cookie CookieConfig
	logger *slog.Logger
}

func NewAuthHandler(svc AuthService, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, cookie: cookie, logger: logger}
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

type refreshResponse struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /v1/register
// REQUEST BODY: {"fullName": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.auth.Register(r.Context(), service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setRefreshCookie(w, s.RefreshToken)
	writeSuccess(w, http.StatusCreated, "User registered successfully",
		sessionResponse{User: s.User, AccessToken: s.AccessToken})
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /v1/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.auth.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setRefreshCookie(w, s.RefreshToken)
	writeSuccess(w, http.StatusOK, "Login successful",
		sessionResponse{User: s.User, AccessToken: s.AccessToken})
}

// HandleGoogle completes Google sign-in. The frontend runs the consent
// redirect and posts the authorization code it got back.
//
// HTTP: POST /v1/google
// REQUEST BODY: {"code": "...", "codeVerifier": "..."}  (verifier only with PKCE)
func (h *AuthHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	s, err := h.auth.LoginWithGoogle(r.Context(), req.Code, req.CodeVerifier)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setRefreshCookie(w, s.RefreshToken)
	writeSuccess(w, http.StatusOK, "Login successful",
		sessionResponse{User: s.User, AccessToken: s.AccessToken})
}

// HandleRefresh rotates the refresh cookie and returns a new access token.
//
// HTTP: GET /v1/refresh
// Auth: refresh cookie
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, r, h.logger, apperror.Unauthorized("Missing refresh cookie"))
		return
	}

	s, err := h.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setRefreshCookie(w, s.RefreshToken)
	writeSuccess(w, http.StatusOK, "Refresh successful",
		refreshResponse{UserID: s.User.ID, AccessToken: s.AccessToken})
}

// HandleLogout clears the refresh cookie.
//
// HTTP: POST /v1/logout
//
// Tokens are stateless: anything already issued stays valid until it
// expires. Logout only stops this browser from presenting the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}

// HandleProfile returns the signed-in user.
//
// HTTP: GET /v1/profile
// Auth: Required
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("Authentication required"))
		return
	}

	user, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile retrieved successfully", user)
}

// HandleForgotPassword emails a reset link.
//
// HTTP: POST /v1/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset email sent", nil)
}

// HandleResetPassword sets a new password using the emailed token.
//
// HTTP: POST /v1/reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset successful", nil)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
