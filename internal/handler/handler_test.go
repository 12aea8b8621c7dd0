package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/middleware"
)

func TestHandler_Hello(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Hello(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["message"] != "Hello from Inkwell!" {
		t.Errorf("unexpected message: %s", response["message"])
	}

	if response["version"] != Version {
		t.Errorf("unexpected version: %s", response["version"])
	}
}

func TestHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := New()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{"not found", h.NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/nonexistent", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
		wantCode   string
	}{
		{"valid", `{"email":"a@example.com","password":"pw"}`, 0, true, 0, ""},
		{"empty body", ``, 0, false, http.StatusBadRequest, "INVALID_JSON"},
		{"malformed", `{"email":`, 0, false, http.StatusBadRequest, "INVALID_JSON"},
		{"fails validation", `{"email":"nope","password":"pw"}`, 0, false, http.StatusBadRequest, "INVALID_INPUT"},
		{"too large", `{"email":"a@example.com","password":"` + strings.Repeat("x", 256) + `"}`, 64, false, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ok bool
			var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req dto.LoginRequest
				ok = decodeJSON(w, r, &req)
			})
			if tt.limit > 0 {
				h = middleware.MaxBodySize(tt.limit)(h)
			}

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = -1 // streamed, so only the body reader enforces the limit

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if ok != tt.wantOK {
				t.Fatalf("decodeJSON ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK {
				return
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}
