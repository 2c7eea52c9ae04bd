package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  "access-secret-at-least-16-chars",
		RefreshSecret: "refresh-secret-at-least-16-chars",
		ResetSecret:   "reset-secret-at-least-16-chars",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		ResetTTL:      24 * time.Hour,
	}
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testTokenConfig())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

// ===== CONSTRUCTOR TESTS =====

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	cfg := testTokenConfig()
	cfg.RefreshSecret = "short"

	if _, err := NewTokenService(cfg); err == nil {
		t.Fatal("expected error for short refresh secret")
	}
}

func TestNewTokenService_RejectsNonPositiveTTL(t *testing.T) {
	cfg := testTokenConfig()
	cfg.ResetTTL = 0

	if _, err := NewTokenService(cfg); err == nil {
		t.Fatal("expected error for zero reset TTL")
	}
}

// ===== ACCESS TOKEN TESTS =====

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.IssueAccessToken("user-123", IssuedViaLogin)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token should have 3 parts, got %q", token)
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.IssuedVia != IssuedViaLogin {
		t.Errorf("IssuedVia = %q, want login", claims.IssuedVia)
	}
}

func TestAccessToken_Expired(t *testing.T) {
	svc := newTestTokenService(t)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.IssueAccessToken("user-123", IssuedViaLogin)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := svc.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestAccessToken_WrongSecret(t *testing.T) {
	svc := newTestTokenService(t)
	token, _ := svc.IssueAccessToken("user-123", IssuedViaLogin)

	cfg := testTokenConfig()
	cfg.AccessSecret = "a-completely-different-secret"
	other, err := NewTokenService(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestAccessToken_Garbage(t *testing.T) {
	svc := newTestTokenService(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyAccessToken(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestTokenService(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audienceAccess},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none: got %v, want ErrInvalidToken", err)
	}
}

// ===== KIND SEPARATION TESTS =====

func TestTokenKinds_DoNotCrossVerify(t *testing.T) {
	svc := newTestTokenService(t)

	access, _ := svc.IssueAccessToken("user-123", IssuedViaLogin)
	refresh, _ := svc.IssueRefreshToken("user-123")
	reset, _ := svc.IssuePasswordResetToken("ada@example.com")

	if _, err := svc.VerifyRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Error("access token verified as refresh token")
	}
	if _, err := svc.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Error("refresh token verified as access token")
	}
	if _, err := svc.VerifyPasswordResetToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Error("access token verified as reset token")
	}
	if _, err := svc.VerifyAccessToken(reset); !errors.Is(err, ErrInvalidToken) {
		t.Error("reset token verified as access token")
	}
}

func TestTokenKinds_SameSecretStillSeparatedByAudience(t *testing.T) {
	cfg := testTokenConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	svc, err := NewTokenService(cfg)
	if err != nil {
		t.Fatal(err)
	}

	refresh, _ := svc.IssueRefreshToken("user-123")
	if _, err := svc.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Error("refresh token verified as access token despite audience mismatch")
	}
}

// ===== REFRESH TOKEN TESTS =====

func TestRefreshToken_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.IssueRefreshToken("user-456")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	userID, err := svc.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("VerifyRefreshToken: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want user-456", userID)
	}
}

func TestRefreshToken_UniquePerIssue(t *testing.T) {
	svc := newTestTokenService(t)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	a, _ := svc.IssueRefreshToken("user-456")
	b, _ := svc.IssueRefreshToken("user-456")
	if a == b {
		t.Error("two refresh tokens issued in the same instant should differ")
	}
}

// ===== PASSWORD RESET TOKEN TESTS =====

func TestPasswordResetToken_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.IssuePasswordResetToken("ada@example.com")
	if err != nil {
		t.Fatalf("IssuePasswordResetToken: %v", err)
	}

	email, err := svc.VerifyPasswordResetToken(token)
	if err != nil {
		t.Fatalf("VerifyPasswordResetToken: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("email = %q, want ada@example.com", email)
	}
}

func TestPasswordResetToken_ExpiresAfterTTL(t *testing.T) {
	svc := newTestTokenService(t)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, _ := svc.IssuePasswordResetToken("ada@example.com")

	svc.now = func() time.Time { return issued.Add(23 * time.Hour) }
	if _, err := svc.VerifyPasswordResetToken(token); err != nil {
		t.Errorf("token should still be valid after 23h: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(25 * time.Hour) }
	if _, err := svc.VerifyPasswordResetToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token should be expired after 25h, got %v", err)
	}
}
