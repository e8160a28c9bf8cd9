package osm

import (
	"net/http"
	"strings"
	"testing"
)

func TestServiceErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantCode   ErrorCode
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimit},
		{"gateway timeout", http.StatusGatewayTimeout, ErrServiceTimeout},
		{"bad request", http.StatusBadRequest, ErrInvalidInput},
		{"internal error", http.StatusInternalServerError, ErrInternalError},
		{"unavailable", http.StatusServiceUnavailable, ErrServiceUnavailable},
		{"unmapped status", http.StatusTeapot, ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ServiceError("overpass", tt.statusCode, "boom")
			if err.Code != string(tt.wantCode) {
				t.Errorf("code = %q, want %q", err.Code, tt.wantCode)
			}
			if err.Guidance == "" {
				t.Error("service errors should carry guidance")
			}
		})
	}
}

func TestAppErrorFormatting(t *testing.T) {
	err := NewError(ErrNoResults, `no results for "Atlantis"`).
		WithQuery("Atlantis").
		WithGuidance("Try a more specific name.")

	msg := err.Error()
	if !strings.HasPrefix(msg, "NO_RESULTS: ") {
		t.Errorf("message missing code prefix: %q", msg)
	}
	if !strings.Contains(msg, "Try a more specific name.") {
		t.Errorf("message missing guidance: %q", msg)
	}

	bare := NewError(ErrInvalidRadius, "radius too large")
	if got := bare.Error(); got != "INVALID_RADIUS: radius too large" {
		t.Errorf("bare message = %q", got)
	}
}
