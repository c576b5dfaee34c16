package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/transfa/thrift-service/internal/domain"
)

func TestWriteEnvelope_MirrorsStatusOnWire(t *testing.T) {
	rec := httptest.NewRecorder()
	message := "user must be authenticated"
	writeEnvelope(rec, domain.APIResponse[domain.ThriftSystem]{Error: &message, Status: http.StatusUnauthorized})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected wire status 401, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content type, got %q", got)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if decoded["data"] != nil {
		t.Fatalf("expected null data, got %v", decoded["data"])
	}
	if decoded["error"] != message {
		t.Fatalf("expected error %q, got %v", message, decoded["error"])
	}
	if decoded["status"] != float64(http.StatusUnauthorized) {
		t.Fatalf("expected status field 401, got %v", decoded["status"])
	}
}

func TestWriteBadRequest_EnvelopeShaped(t *testing.T) {
	rec := httptest.NewRecorder()
	writeBadRequest(rec, "Invalid request body")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if decoded["error"] != "Invalid request body" {
		t.Fatalf("unexpected error message: %v", decoded["error"])
	}
	if decoded["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("expected status field 400, got %v", decoded["status"])
	}
}

func TestAuthSubject_EmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := authSubject(req); got != "" {
		t.Fatalf("expected empty subject without middleware, got %q", got)
	}
}

func TestAuthSubject_ReadsMiddlewareContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithAuthSubject(req.Context(), "sub_test"))
	if got := authSubject(req); got != "sub_test" {
		t.Fatalf("expected sub_test, got %q", got)
	}
}

func requestWithSystemID(raw string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("systemID", raw)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestSystemIDParam(t *testing.T) {
	id := uuid.New()
	parsed, ok := systemIDParam(requestWithSystemID(id.String()))
	if !ok {
		t.Fatal("expected valid uuid to parse")
	}
	if parsed != id {
		t.Fatalf("expected %s, got %s", id, parsed)
	}

	if _, ok := systemIDParam(requestWithSystemID("not-a-uuid")); ok {
		t.Fatal("expected invalid uuid to be rejected")
	}
}
