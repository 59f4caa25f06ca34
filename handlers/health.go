package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// KeySetProvider exposes the resolver's key snapshot
type KeySetProvider interface {
	Snapshot() *keycloak.SigningKeySet
	Refresh(ctx context.Context) (*keycloak.SigningKeySet, error)
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	keys   KeySetProvider
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db is nil when event
// recording is disabled.
func NewHealthHandler(db *sql.DB, keys KeySetProvider, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		keys:   keys,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only - always returns 200 if the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
// Ready once the realm keys are loaded and the event store (if any) answers
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkKeys(ctx); err != nil {
		h.logger.Warn("JWKS readiness check failed", zap.Error(err))
		checks["jwks"] = "unhealthy"
		allHealthy = false
	} else {
		checks["jwks"] = "healthy"
	}

	if h.db != nil {
		if err := h.checkDatabase(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkKeys warms the key snapshot on first use
func (h *HealthHandler) checkKeys(ctx context.Context) error {
	if h.keys == nil || h.keys.Snapshot() != nil {
		return nil
	}
	_, err := h.keys.Refresh(ctx)
	return err
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
