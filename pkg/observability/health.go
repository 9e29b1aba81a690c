package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater reports a circuit breaker state name ("closed", "half-open", "open")
type BreakerStater interface {
	State() string
}

// HealthChecker manages health checks for the service.
// The database is critical; an open cart-clearing breaker only degrades the service.
type HealthChecker struct {
	db          Pinger
	cartBreaker BreakerStater
}

// NewHealthChecker creates a new HealthChecker. Either dependency may be nil.
func NewHealthChecker(db Pinger, cartBreaker BreakerStater) *HealthChecker {
	return &HealthChecker{
		db:          db,
		cartBreaker: cartBreaker,
	}
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := StatusHealthy

	if h.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.db.Ping(dbCtx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			overallStatus = StatusUnhealthy
		} else {
			checks["database"] = StatusHealthy
		}
	} else {
		checks["database"] = "not configured"
	}

	if h.cartBreaker != nil {
		state := h.cartBreaker.State()
		if state == "open" {
			checks["cart_clearing"] = "degraded: circuit open"
			if overallStatus == StatusHealthy {
				overallStatus = StatusDegraded
			}
		} else {
			checks["cart_clearing"] = state
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(status)
	}
}
