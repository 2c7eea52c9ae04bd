// Package auth issues and verifies tokens, hashes passwords and talks to
// Google for sign-in.
//
// TOKEN KINDS:
// The API uses three JWT kinds, each with its own secret and audience:
//
//	access          15 min   Authorization: Bearer header on every protected call
//	refresh         30 days  HttpOnly cookie, traded for a new access token
//	password_reset  24 h     emailed link, traded for a new password
//
// Separate secrets and audiences mean a token of one kind never verifies
// as another, even if a client sends it to the wrong endpoint.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//
// Verification needs only the secret, never the database. The flip side is
// that tokens cannot be revoked: logout clears the refresh cookie, but a
// copied token stays valid until it expires. There is no server-side
// blacklist.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// ErrInvalidToken is the only error Verify* methods return. Expired,
// malformed, forged and wrong-kind tokens are indistinguishable to callers.
var ErrInvalidToken = errors.New("auth: invalid token")

const (
	issuer = "cashflow-api"

	audienceAccess  = "access"
	audienceRefresh = "refresh"
	audienceReset   = "password_reset"

	minSecretLength = 16
)

// IssuedVia records how an access token was obtained.
type IssuedVia string

const (
	IssuedViaLogin   IssuedVia = "login"
	IssuedViaRefresh IssuedVia = "refresh"
	IssuedViaGoogle  IssuedVia = "google"
)

// TokenConfig holds the secrets and lifetimes for every token kind.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

type tokenKind struct {
	secret   []byte
	ttl      time.Duration
	audience string
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	access  tokenKind
	refresh tokenKind
	reset   tokenKind
	now     func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
// Secrets should be at least 32 bytes of random data in production:
//
//	ACCESS_TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	kinds := []struct {
		name   string
		secret string
		ttl    time.Duration
	}{
		{audienceAccess, cfg.AccessSecret, cfg.AccessTTL},
		{audienceRefresh, cfg.RefreshSecret, cfg.RefreshTTL},
		{audienceReset, cfg.ResetSecret, cfg.ResetTTL},
	}
	for _, k := range kinds {
		if len(k.secret) < minSecretLength {
			return nil, fmt.Errorf("auth: %s secret must be at least %d characters", k.name, minSecretLength)
		}
		if k.ttl <= 0 {
			return nil, fmt.Errorf("auth: %s token lifetime must be positive", k.name)
		}
	}

	return &TokenService{
		access:  tokenKind{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL, audience: audienceAccess},
		refresh: tokenKind{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL, audience: audienceRefresh},
		reset:   tokenKind{secret: []byte(cfg.ResetSecret), ttl: cfg.ResetTTL, audience: audienceReset},
		now:     time.Now,
	}, nil
}

// RefreshTTL is how long a refresh token, and therefore its cookie, lives.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refresh.ttl
}

// ResetTTL is how long a password-reset link stays usable.
func (s *TokenService) ResetTTL() time.Duration {
	return s.reset.ttl
}

// AccessClaims is what a verified access token says about its bearer.
type AccessClaims struct {
	UserID    string
	IssuedVia IssuedVia
	ExpiresAt time.Time
}

type accessClaims struct {
	IssuedVia IssuedVia `json:"issuedVia"`
	jwt.RegisteredClaims
}

type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *TokenService) registered(kind tokenKind, subject string) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{kind.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(kind.ttl)),
	}
}

// IssueAccessToken signs a short-lived token for userID.
func (s *TokenService) IssueAccessToken(userID string, via IssuedVia) (string, error) {
	return s.sign(s.access, accessClaims{
		IssuedVia:        via,
		RegisteredClaims: s.registered(s.access, userID),
	})
}

// VerifyAccessToken returns the claims of a valid access token.
func (s *TokenService) VerifyAccessToken(token string) (AccessClaims, error) {
	var c accessClaims
	if err := s.parse(s.access, token, &c); err != nil {
		return AccessClaims{}, err
	}
	return AccessClaims{
		UserID:    c.Subject,
		IssuedVia: c.IssuedVia,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// IssueRefreshToken signs a long-lived token for userID. Every refresh
// token carries a unique ID, so rotating twice in the same second still
// yields different tokens.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	rc := s.registered(s.refresh, userID)
	rc.ID = xid.New().String()
	return s.sign(s.refresh, rc)
}

// VerifyRefreshToken returns the user ID a valid refresh token was issued to.
func (s *TokenService) VerifyRefreshToken(token string) (string, error) {
	var c jwt.RegisteredClaims
	if err := s.parse(s.refresh, token, &c); err != nil {
		return "", err
	}
	return c.Subject, nil
}

// IssuePasswordResetToken signs a token that authorizes setting a new
// password for email. It is not single-use: it stays valid until expiry.
func (s *TokenService) IssuePasswordResetToken(email string) (string, error) {
	rc := s.registered(s.reset, email)
	rc.ID = xid.New().String()
	return s.sign(s.reset, resetClaims{Email: email, RegisteredClaims: rc})
}

// VerifyPasswordResetToken returns the email a valid reset token was issued for.
func (s *TokenService) VerifyPasswordResetToken(token string) (string, error) {
	var c resetClaims
	if err := s.parse(s.reset, token, &c); err != nil {
		return "", err
	}
	if c.Email == "" {
		return "", ErrInvalidToken
	}
	return c.Email, nil
}

func (s *TokenService) sign(kind tokenKind, claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(kind.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", kind.audience, err)
	}
	return signed, nil
}

// parse verifies signature, algorithm, issuer, audience and expiry.
// Pinning the algorithm to HS256 blocks "alg: none" and key-confusion
// tricks; pinning the audience keeps token kinds apart.
func (s *TokenService) parse(kind tokenKind, token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return kind.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(kind.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ErrInvalidToken
	}
	return nil
}
