package http

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("X-Custom", "value").
		Payload(map[string]int{"rows": 3}).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("X-Custom") != "value" || !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("headers = %v", w.Header())
	}
	if strings.TrimSpace(w.Body.String()) != `{"rows":3}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Payload(math.Inf(1)).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		want    int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
		{"unavailable", ServiceUnavailableError("x"), http.StatusServiceUnavailable},
		{"too many", TooManyRequestsError(), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.want || !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("got %d %s", w.Code, w.Body.String())
			}
		})
	}
}
