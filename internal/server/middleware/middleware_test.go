package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/crestline/tenantcore/internal/tenancy"
)

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(tag("outer"), tag("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.7", "", "10.0.0.1:443", "203.0.113.7"},
		{"forwarded list takes first", "203.0.113.7, 10.0.0.2", "", "10.0.0.1:443", "203.0.113.7"},
		{"real ip", "", "198.51.100.3", "10.0.0.1:443", "198.51.100.3"},
		{"peer address", "", "", "192.0.2.9:51721", "192.0.2.9"},
		{"peer address without port", "", "", "192.0.2.9", "192.0.2.9"},
		{"nothing", "", "", "", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-Ip", tc.realIP)
			}
			if got := ClientIP(r); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIPFromContext(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.7")
	if got := ClientIPFromContext(ctx); got != "203.0.113.7" {
		t.Errorf("ClientIPFromContext = %q", got)
	}
	if got := ClientIPFromContext(context.Background()); got != "unknown" {
		t.Errorf("ClientIPFromContext (unset) = %q, want unknown", got)
	}
}

func TestRequestLog_StampsContext(t *testing.T) {
	var gotIP, gotRequestID string
	h := RequestLog(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = ClientIPFromContext(r.Context())
		gotRequestID = w.Header().Get("X-Request-Id")
	}))

	req := httptest.NewRequest("GET", "/v1/orgs", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if gotIP != "203.0.113.7" {
		t.Errorf("client ip in context = %q", gotIP)
	}
	if gotRequestID == "" {
		t.Error("request id should be generated and set on the response")
	}
}

func TestRequestLog_PropagatesRequestID(t *testing.T) {
	h := RequestLog(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/v1/orgs", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("X-Request-Id = %q, want req-42", got)
	}
}

// noopRecorder satisfies tenancy.Recorder for tests that need an elevated scope.
type noopRecorder struct{}

func (noopRecorder) RecordBypass(context.Context, tenancy.BypassRecord) error { return nil }
