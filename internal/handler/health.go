package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/service"
)

// StatusProvider reports the state of the camera workers.
type StatusProvider interface {
	RunID() string
	Status() []service.WorkerStatus
}

type healthResponse struct {
	Status  string                 `json:"status"`
	RunID   string                 `json:"run_id"`
	Workers []service.WorkerStatus `json:"workers"`
}

// HealthHandler reports "ok" while no worker has failed, "degraded" otherwise.
// It always answers 200 so one failed camera does not mark the process dead.
func HealthHandler(provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", RunID: provider.RunID(), Workers: provider.Status()}
		for _, st := range resp.Workers {
			if st.State == service.StateFailed {
				resp.Status = "degraded"
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
