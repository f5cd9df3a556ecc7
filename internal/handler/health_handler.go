package handler

import (
	"net/http"
	"time"

	"github.com/dandantas/scout/internal/registry"
)

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	gateway   ProviderConfigurator
	registry  *registry.Registry
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gateway ProviderConfigurator, reg *registry.Registry, version string) *HealthHandler {
	return &HealthHandler{
		gateway:   gateway,
		registry:  reg,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	Providers     string `json:"providers"`
	Jobs          int    `json:"jobs"`
	RunningJobs   int    `json:"running_jobs"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready     bool   `json:"ready"`
	Providers string `json:"providers"`
}

// Health returns the service health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	providers := "configured"
	if !h.gateway.Configured() {
		providers = "not_configured"
	}

	response := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Providers:     providers,
		Jobs:          h.registry.Len(),
		RunningJobs:   h.registry.Running(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready returns the service readiness status; the service is ready to accept
// research once provider credentials are configured
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready := h.gateway.Configured()

	providers := "configured"
	statusCode := http.StatusOK
	if !ready {
		providers = "not_configured"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Ready:     ready,
		Providers: providers,
	})
}
