package route

import (
	"net/http"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/handler"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/metrics"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service/websocket"
)

// SetupRoutes registers the observation endpoints: metrics, live records,
// worker health and log files.
func SetupRoutes(status handler.StatusProvider, hub *websocket.HubService, m *metrics.Metrics, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /ws", handler.ViewWebsocketHandler(hub, logger))
	mux.HandleFunc("GET /health", handler.HealthHandler(status))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return mux
}
