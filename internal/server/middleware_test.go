package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bobmcallan/roundup/internal/common"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func identityHandler(t *testing.T, wantUser string) http.Handler {
	return applyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := common.ResolveUserID(r.Context()); got != wantUser {
			t.Errorf("expected user %q, got %q", wantUser, got)
		}
		w.WriteHeader(http.StatusOK)
	}), common.NewSilentLogger(), common.NewDefaultConfig())
}

func TestUserContextMiddleware_Header(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set(UserIDHeader, " alice ")
	rr := httptest.NewRecorder()
	identityHandler(t, "alice").ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
}

func TestUserContextMiddleware_NoHeaders(t *testing.T) {
	handler := userContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uc := common.UserContextFromContext(r.Context()); uc != nil {
			t.Error("Expected nil UserContext when no headers present")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
}

func TestBearerToken_SubjectWinsOverHeader(t *testing.T) {
	cfg := common.NewDefaultConfig()
	token := signToken(t, cfg.Auth.JWTSecret, jwt.MapClaims{
		"sub": "bob",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(UserIDHeader, "alice")
	rr := httptest.NewRecorder()
	identityHandler(t, "bob").ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
}

func TestBearerToken_Invalid(t *testing.T) {
	cases := map[string]string{
		"wrong secret": signToken(t, "other-secret", jwt.MapClaims{"sub": "bob"}),
		"expired":      signToken(t, common.NewDefaultConfig().Auth.JWTSecret, jwt.MapClaims{"sub": "bob", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":   signToken(t, common.NewDefaultConfig().Auth.JWTSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		"garbage":      "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			handler := applyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run")
			}), common.NewSilentLogger(), common.NewDefaultConfig())

			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rr.Code)
			}
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("Expected WWW-Authenticate challenge")
			}
		})
	}
}

func TestCorrelationID(t *testing.T) {
	handler := applyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), common.NewSilentLogger(), common.NewDefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc123" {
		t.Errorf("Expected propagated correlation id, got %q", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if got := rr.Header().Get("X-Correlation-ID"); len(got) != 8 {
		t.Errorf("Expected generated 8-char correlation id, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := applyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), common.NewSilentLogger(), common.NewDefaultConfig())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := applyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach handler")
	}), common.NewSilentLogger(), common.NewDefaultConfig())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/transactions", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
}
