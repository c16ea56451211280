package health

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLivezFreshHeartbeat(t *testing.T) {
	h := NewHandler(WithLogger(testLogger()))

	rec := httptest.NewRecorder()
	h.HandleLivez(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLivezStaleHeartbeat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHandler(WithLogger(testLogger()), WithNowFunc(func() time.Time { return now }))

	now = now.Add(HeartbeatTimeout + time.Second)

	rec := httptest.NewRecorder()
	h.HandleLivez(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	// A fresh heartbeat recovers liveness.
	h.UpdateHeartbeat()
	rec = httptest.NewRecorder()
	h.HandleLivez(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status after heartbeat = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name      string
		apiServer bool
		provider  bool
		wantCode  int
	}{
		{"all ready", true, true, http.StatusOK},
		{"api server down", false, true, http.StatusServiceUnavailable},
		{"provider unhealthy", true, false, http.StatusServiceUnavailable},
		{"nothing ready", false, false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(WithLogger(testLogger()))
			h.SetAPIServerReachable(tt.apiServer)
			h.SetProviderHealthy(tt.provider)

			rec := httptest.NewRecorder()
			h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(nil, DefaultPort); err == nil {
		t.Error("expected error for nil handler")
	}
	if _, err := NewServer(NewHandler(WithLogger(testLogger())), 0); err == nil {
		t.Error("expected error for port 0")
	}
	if _, err := NewServer(NewHandler(WithLogger(testLogger())), 70000); err == nil {
		t.Error("expected error for out-of-range port")
	}
}
