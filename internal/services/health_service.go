package services

import (
	"context"
	"log/slog"
	"time"

	"keymint/internal/license"
)

// HealthStatus is the payload returned by the health endpoints.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthService reports liveness and readiness of the license server.
type HealthService struct {
	store   license.Store
	logger  *slog.Logger
	name    string
	version string
}

// NewHealthService creates a health service that probes the given store.
func NewHealthService(store license.Store, logger *slog.Logger, name, version string) *HealthService {
	return &HealthService{
		store:   store,
		logger:  logger.With(slog.String("service", "health")),
		name:    name,
		version: version,
	}
}

// HealthCheck reports process liveness.
func (s *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Status: "ok", Timestamp: time.Now().UTC()}
}

// ReadinessCheck reports whether the license store is reachable.
func (s *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	if _, err := s.store.LoadAll(ctx); err != nil {
		s.logger.WarnContext(ctx, "readiness probe failed",
			slog.String("error", err.Error()))
		return HealthStatus{
			Status:    "unavailable",
			Timestamp: time.Now().UTC(),
			Detail:    "license store unreachable",
		}
	}
	return HealthStatus{Status: "ready", Timestamp: time.Now().UTC()}
}

// Version returns build information.
func (s *HealthService) Version() VersionInfo {
	return VersionInfo{Name: s.name, Version: s.version}
}
