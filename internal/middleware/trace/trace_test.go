package trace

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "pnl/internal/log"
)

func newLogger(w io.Writer) *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP, JSON: true, Output: w})
}

func TestMiddleware_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newLogger(&buf), func(*http.Request) string { return "10.0.0.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", seen, err)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(RequestIDHeader), seen)
	}
	if !strings.Contains(buf.String(), seen) || !strings.Contains(buf.String(), `"status_code":418`) {
		t.Errorf("log line missing request id or status: %s", buf.String())
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestRequestIDFrom(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"absent", "", false},
		{"caller supplied", "job-42", true},
		{"with spaces", "job 42", false},
		{"too long", strings.Repeat("x", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set(RequestIDHeader, tt.header)
			}
			got := requestIDFrom(r)
			if (got == tt.header) != tt.keep {
				t.Errorf("requestIDFrom() = %q, keep = %v", got, tt.keep)
			}
		})
	}
}
