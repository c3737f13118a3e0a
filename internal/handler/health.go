package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/segyhp/fleet-charges/pkg/response"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	db      *sqlx.DB
	redis   *redis.Client
	timeout time.Duration
}

// NewHealthHandler builds the liveness and readiness handler. redis may be nil
// when the charge cache is disabled; it is then left out of readiness.
func NewHealthHandler(db *sqlx.DB, redis *redis.Client, timeout time.Duration) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		timeout: timeout,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    map[string]string{},
	})
}

// Ready performs readiness check including database and redis connectivity
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"database": h.db.PingContext,
	}
	if h.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }
	}

	for name, check := range checks {
		if err := check(ctx); err != nil {
			status.Status = "error"
			status.Checks[name] = "failed: " + err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}
