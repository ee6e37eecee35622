package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service"
)

type fakeStatus []service.WorkerStatus

func (f fakeStatus) RunID() string                  { return "run-1" }
func (f fakeStatus) Status() []service.WorkerStatus { return f }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name    string
		workers fakeStatus
		want    string
	}{
		{"all running", fakeStatus{{Camera: "gate", State: service.StateRunning}}, "ok"},
		{"one failed", fakeStatus{{Camera: "gate", State: service.StateRunning}, {Camera: "dock", State: service.StateFailed}}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler(tt.workers).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			var resp healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Invalid response: %v", err)
			}
			if resp.Status != tt.want || resp.RunID != "run-1" || len(resp.Workers) != len(tt.workers) {
				t.Errorf("Unexpected response: %+v", resp)
			}
		})
	}
}

func newLogMux(t *testing.T) (*http.ServeMux, *logger.Logger) {
	t.Helper()
	log, err := logger.NewLogger(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /logs/{level}", ShowLogsHandler(log))
	mux.HandleFunc("POST /logs/{level}/clear", ClearLogsHandler(log))
	return mux, log
}

func TestLogsHandlers(t *testing.T) {
	mux, log := newLogMux(t)
	log.Warning("disk almost full")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/logs/warning", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "disk almost full") {
		t.Fatalf("Expected warning log, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/logs/warning/clear", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	data, err := os.ReadFile(filepath.Join(log.Dir(), "warning.log"))
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected cleared log, got %q", data)
	}
}

func TestLogsHandlers_UnknownLevel(t *testing.T) {
	mux, _ := newLogMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/logs/secrets", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
