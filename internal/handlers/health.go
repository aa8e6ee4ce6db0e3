package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

const Version = "1.0.0"

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Database   string            `json:"database"`
	Components map[string]string `json:"components,omitempty"`
}

type HealthHandler struct {
	checks   map[string]Pinger
	database bool
	logger   *slog.Logger
}

// NewHealthHandler reports database "enabled" when a real database backs the repository.
func NewHealthHandler(checks map[string]Pinger, database bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, database: database, logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overallStatus := "healthy"
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			overallStatus = "degraded"
			continue
		}
		components[name] = "healthy"
	}

	database := "disabled"
	if h.database {
		database = "enabled"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now().UTC(),
		Version:    Version,
		Database:   database,
		Components: components,
	})
}
