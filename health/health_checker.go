// Package health provides health checking functionality for the PillGuide API.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/pillguide/pillguide-api/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store interfaces.DocumentStore
	stats interfaces.StatsStore
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(store interfaces.DocumentStore, stats interfaces.StatsStore) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store: store,
		stats: stats,
	}
}

// HealthCheck returns the current system health. The store is pinged live;
// counts come from the background stats refresh so the request path stays
// cheap.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (string, map[string]any, int) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	storeUp := h.store.Ping(pingCtx) == nil

	lastChecked := h.stats.GetLastChecked()
	statsAge := time.Since(lastChecked)

	var status string
	var httpStatus int
	switch {
	case !storeUp:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case lastChecked.IsZero() || statsAge > 2*time.Hour:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data := map[string]any{
		"store_reachable":    storeUp,
		"prescription_count": h.stats.GetPrescriptionCount(),
		"medication_count":   h.stats.GetMedicationCount(),
		"stats_last_checked": lastChecked.Format(time.RFC3339),
	}

	return status, data, httpStatus
}
