package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"clientId": "required"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "validation_failed" || body.Details["clientId"] != "required" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		path   string
		accept string
		want   bool
	}{
		{"/api/admin/quotes", "", true},
		{"/dashboard/admin", "text/html,application/xhtml+xml", false},
		{"/dashboard/admin", "application/json", true},
		{"/dashboard/admin", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.accept != "" {
			r.Header.Set("Accept", tt.accept)
		}
		if got := WantsJSON(r); got != tt.want {
			t.Errorf("WantsJSON(%s, %q) = %v, want %v", tt.path, tt.accept, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Loft"}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &dst); err != nil || dst.Name != "Loft" {
		t.Fatalf("DecodeJSON() = %v, name=%q", err, dst.Name)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), r, &dst); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON for empty body, got %v", err)
	}
}
