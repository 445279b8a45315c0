package errors

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("invalid input").Build(), http.StatusBadRequest},
		{"not found", NotFoundError("asset").Build(), http.StatusNotFound},
		{"conflict", DuplicateNameConflict("app.css", "").Build(), http.StatusConflict},
		{"build", BuildError("unsupported pairing").Build(), http.StatusUnprocessableEntity},
		{"cache", CacheError("nats unavailable").Build(), http.StatusBadGateway},
		{"internal", InternalError("bug").Build(), http.StatusInternalServerError},
		{"unclassified", stderrors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.StatusCodeFor(tt.err); got != tt.expected {
				t.Errorf("StatusCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/api/assets/missing", nil)
	rec := httptest.NewRecorder()

	adapter.WriteErrorResponse(rec, req, NotFoundError("asset missing").WithContext("name", "missing").Build())

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var payload HTTPErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != string(CategoryNotFound) {
		t.Errorf("expected code %q, got %q", CategoryNotFound, payload.Code)
	}
	if payload.Details["name"] != "missing" {
		t.Errorf("expected details.name=missing, got %v", payload.Details["name"])
	}
}
