package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func authTestHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func decodeAuthEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return decoded
}

func TestAuthMiddleware_MissingHeaderPassesThrough(t *testing.T) {
	called := false
	handler := AuthMiddleware(AuthOptions{JWKSURL: "http://localhost/jwks"})(authTestHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Fatal("expected request without credentials to reach the next handler")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from next handler, got %d", rec.Code)
	}
}

func TestAuthMiddleware_MalformedHeaderRejectedWithEnvelope(t *testing.T) {
	called := false
	handler := AuthMiddleware(AuthOptions{JWKSURL: "http://localhost/jwks"})(authTestHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatal("expected malformed header to be rejected before the handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	decoded := decodeAuthEnvelope(t, rec)
	if decoded["data"] != nil {
		t.Fatalf("expected null data, got %v", decoded["data"])
	}
	if msg, ok := decoded["error"].(string); !ok || msg == "" {
		t.Fatalf("expected a non-empty error message, got %v", decoded["error"])
	}
	if decoded["status"] != float64(http.StatusUnauthorized) {
		t.Fatalf("expected status field 401, got %v", decoded["status"])
	}
}

func TestAuthMiddleware_UnparseableTokenRejectedWithEnvelope(t *testing.T) {
	called := false
	handler := AuthMiddleware(AuthOptions{JWKSURL: "http://localhost/jwks"})(authTestHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Fatal("expected invalid token to be rejected before the handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	decoded := decodeAuthEnvelope(t, rec)
	if msg, ok := decoded["error"].(string); !ok || msg == "" {
		t.Fatalf("expected a non-empty error message, got %v", decoded["error"])
	}
}
