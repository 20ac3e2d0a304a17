package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/expense/postgres"
)

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	Fallback   bool         `json:"fallback"`
	CheckedAt  time.Time    `json:"checked_at"`
	DurationMs int64        `json:"duration_ms"`
}

// StoreMonitor is the part of postgres.HealthMonitor the health endpoint needs.
type StoreMonitor interface {
	Check(ctx context.Context) bool
	Snapshot() postgres.HealthSnapshot
}

type HealthHandler struct {
	monitor StoreMonitor
}

func NewHealthHandler(monitor StoreMonitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// pingHandler is liveness only.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler re-checks the store. A down store is degraded, not fatal: reads are served from fixtures.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	healthy := h.monitor.Check(r.Context())
	snap := h.monitor.Snapshot()

	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  snap.CheckedAt,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if !healthy {
		entry.Status = HealthDegraded
		entry.Fallback = true
		entry.Message = "store unreachable, reads served from fixture data"
	}

	resp := HealthResponse{
		Status:     entry.Status,
		CheckedAt:  time.Now(),
		Components: map[string]CheckEntry{"postgres": entry},
	}

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
