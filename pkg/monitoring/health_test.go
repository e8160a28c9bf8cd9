package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthStatusTransitions(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "test")
	defer hc.Shutdown()

	tests := []struct {
		name  string
		setup func()
		want  string
	}{
		{
			name:  "no connections is healthy",
			setup: func() {},
			want:  "healthy",
		},
		{
			name: "all connected is healthy",
			setup: func() {
				hc.UpdateConnection("nominatim", "connected", 12, nil)
				hc.UpdateConnection("overpass", "connected", 40, nil)
			},
			want: "healthy",
		},
		{
			name: "minority error is degraded",
			setup: func() {
				hc.UpdateConnection("nominatim", "connected", 12, nil)
				hc.UpdateConnection("overpass", "connected", 40, nil)
				hc.UpdateConnection("inkscape", "error", 0, errors.New("not found"))
			},
			want: "degraded",
		},
		{
			name: "majority error is unhealthy",
			setup: func() {
				hc.UpdateConnection("nominatim", "error", 0, errors.New("timeout"))
				hc.UpdateConnection("overpass", "error", 0, errors.New("timeout"))
				hc.UpdateConnection("inkscape", "connected", 5, nil)
			},
			want: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc.RemoveConnection("nominatim")
			hc.RemoveConnection("overpass")
			hc.RemoveConnection("inkscape")
			tt.setup()

			if got := hc.GetHealth().Status; got != tt.want {
				t.Errorf("GetHealth().Status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "test")
	defer hc.Shutdown()

	hc.UpdateConnection("overpass", "connected", 30, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hc.HealthHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health ServiceHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if health.Service != ServiceName {
		t.Errorf("service = %q, want %q", health.Service, ServiceName)
	}
	if _, ok := health.Connections["overpass"]; !ok {
		t.Error("overpass connection missing from health response")
	}
}

func TestHealthHandlerUnhealthy(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "test")
	defer hc.Shutdown()

	hc.UpdateConnection("overpass", "error", 0, errors.New("down"))

	rec := httptest.NewRecorder()
	hc.HealthHandler()(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "test")
	defer hc.Shutdown()

	rec := httptest.NewRecorder()
	hc.LivenessHandler()(rec, httptest.NewRequest("GET", "/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestConnectionMonitor(t *testing.T) {
	hc := NewHealthChecker(ServiceName, "test")
	defer hc.Shutdown()

	calls := make(chan struct{}, 4)
	cm := NewConnectionMonitor("probe", hc, func() error {
		calls <- struct{}{}
		return nil
	}, 10*time.Millisecond)

	cm.Start()
	defer cm.Stop()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("check function never invoked")
	}

	// Give the initial check time to land in the health map.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if conn, ok := hc.GetHealth().Connections["probe"]; ok {
			if conn.Status != "connected" {
				t.Errorf("probe status = %q, want connected", conn.Status)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("probe connection never recorded")
}
