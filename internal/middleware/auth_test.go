package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/futari/internal/token"
)

// mockVerifier はTokenVerifierのテスト用実装。
type mockVerifier struct {
	verifyFn func(tokenString, wantType string) (string, error)
}

func (m *mockVerifier) Verify(tokenString, wantType string) (string, error) {
	if m.verifyFn != nil {
		return m.verifyFn(tokenString, wantType)
	}
	return "", errors.New("not implemented")
}

func TestAuthMiddleware_ValidBearerToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(tokenString, wantType string) (string, error) {
			if tokenString != "valid-token" {
				t.Errorf("token = %q, want valid-token", tokenString)
			}
			if wantType != token.TypeAccess {
				t.Errorf("wantType = %q, want %q", wantType, token.TypeAccess)
			}
			return "user-1", nil
		},
	}

	var capturedUserID string
	handler := NewAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", capturedUserID)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	handler := NewAuthMiddleware(&mockVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no scheme", "just-a-token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"lowercase scheme", "bearer some-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(&mockVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(_, _ string) (string, error) {
			return "", errors.New("token is expired")
		},
	}

	handler := NewAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestAuthMiddleware_WithRealTokenManager は実際のトークン実装との結合を検証する。
func TestAuthMiddleware_WithRealTokenManager(t *testing.T) {
	manager := token.NewManager("test-secret", time.Hour, 7*24*time.Hour)

	access, err := manager.IssueAccess("user-42")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}
	refresh, err := manager.IssueRefresh("user-42")
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}

	var capturedUserID string
	handler := NewAuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// アクセストークンは通る
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("access token: status = %d, want 200", w.Result().StatusCode)
	}
	if capturedUserID != "user-42" {
		t.Errorf("userID = %q, want user-42", capturedUserID)
	}

	// リフレッシュトークンでAPIは呼べない
	req = httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh token: status = %d, want 401", w.Result().StatusCode)
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); err == nil {
		t.Error("expected error for context without user ID")
	}
}
