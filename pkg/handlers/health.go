package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
)

// ============================================================================
// Response Types
// ============================================================================

type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// ============================================================================
// Handler
// ============================================================================

type HealthHandler struct {
	config *config.Config
	logger *zap.Logger
}

func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		config: cfg,
		logger: logger.Named("health-handler"),
	}
}

// Health responds to liveness probes.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping reports build and runtime details for diagnostics.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	resp := PingResponse{
		Status:      "ok",
		Version:     h.config.Version,
		Service:     "glimpse-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.config.Env,
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write ping response", zap.Error(err))
	}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}
