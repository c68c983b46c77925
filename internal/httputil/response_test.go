package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp["error"]
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "test error")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}
	if msg := decodeError(t, rec); msg != "test error" {
		t.Errorf("error = %s, want 'test error'", msg)
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"events": 3})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["events"] != 3 {
		t.Errorf("events = %d, want 3", resp["events"])
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	notFound := errors.New("not found")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"tagged", WithStatus(http.StatusNotFound, notFound), http.StatusNotFound},
		{"wrapped", fmt.Errorf("run x: %w", WithStatus(http.StatusNotFound, notFound)), http.StatusNotFound},
		{"errorf", Errorf(http.StatusBadRequest, "bad label %q", "a,b"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if msg := decodeError(t, rec); msg != tt.err.Error() {
				t.Errorf("error = %q, want %q", msg, tt.err.Error())
			}
		})
	}

	if !errors.Is(WithStatus(http.StatusNotFound, notFound), notFound) {
		t.Error("WithStatus should keep the wrapped error visible to errors.Is")
	}
	if WithStatus(http.StatusNotFound, nil) != nil {
		t.Error("WithStatus(nil) should be nil")
	}
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	h := HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		if r.URL.Query().Get("fail") != "" {
			return Errorf(http.StatusTeapot, "refused")
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?fail=1", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
