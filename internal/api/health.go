package api

import (
	"net/http"
	"time"

	"github.com/arnab-netizen/AICMO-sub004/internal/store"
)

// HealthResponse reports service health plus the worker lease, so a probe
// can tell "loop alive" apart from "HTTP alive".
type HealthResponse struct {
	Status          string `json:"status"`
	WorkerID        string `json:"worker_id,omitempty"`
	LeaseStatus     string `json:"lease_status,omitempty"`
	HeartbeatAgeSec int    `json:"heartbeat_age_sec,omitempty"`
}

// HealthHandler returns the health check handler.
func HealthHandler(pgStore *store.PostgresStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy"}

		lease, err := pgStore.GetRunningLease(r.Context())
		if err != nil {
			respondJSON(w, http.StatusOK, HealthResponse{Status: "degraded"})
			return
		}
		if lease != nil {
			resp.WorkerID = lease.WorkerID
			resp.LeaseStatus = string(lease.Status)
			resp.HeartbeatAgeSec = int(time.Since(lease.LastHeartbeat).Seconds())
		}

		respondJSON(w, http.StatusOK, resp)
	}
}
