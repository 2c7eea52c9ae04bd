package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func protectedHandler(t *testing.T, svc *TokenService) http.Handler {
	t.Helper()
	return RequireAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Error("UserIDFromContext returned false inside RequireAuth")
		}
		_, _ = w.Write([]byte(userID))
	}))
}

func TestRequireAuth_ValidBearer(t *testing.T) {
	svc := newTestTokenService(t)
	token, _ := svc.IssueAccessToken("user-123", IssuedViaLogin)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedHandler(t, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "user-123" {
		t.Errorf("body = %q, want user-123", rec.Body.String())
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	svc := newTestTokenService(t)
	refresh, _ := svc.IssueRefreshToken("user-123")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"refresh token", "Bearer " + refresh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			protectedHandler(t, svc).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body["success"] != false || body["error"] != "unauthorized" {
				t.Errorf("unexpected envelope: %v", body)
			}
		})
	}
}

func TestUserIDFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFromContext(req.Context()); ok {
		t.Error("expected no user in a bare context")
	}
}
