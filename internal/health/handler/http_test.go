package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheck_Healthy(t *testing.T) {
	h := NewHandler(fakePinger{})
	w := httptest.NewRecorder()
	h.Check(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok", w.Body.String())
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	h := NewHandler(fakePinger{err: errors.New("connection refused")})
	w := httptest.NewRecorder()
	h.Check(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"degraded"`) {
		t.Errorf("body = %q, want degraded", w.Body.String())
	}
}

func TestCheck_NilPinger(t *testing.T) {
	h := NewHandler(nil)
	w := httptest.NewRecorder()
	h.Check(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
