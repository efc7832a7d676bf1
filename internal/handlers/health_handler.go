package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// Pinger is satisfied by store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	redis *redis.Client
}

func NewHealthHandler(db Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// Health reports dependency status
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} object{status=string,database=string,redis=string}
// @Failure 503 {object} object{status=string,database=string,redis=string}
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := map[string]string{"status": "healthy", "database": "up", "redis": "disabled"}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		resp["status"] = "unhealthy"
		resp["database"] = "down"
		status = http.StatusServiceUnavailable
	}

	// Redis is optional; losing it degrades logout and queues but not the ledger.
	if h.redis != nil {
		resp["redis"] = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp["redis"] = "down"
			if status == http.StatusOK {
				resp["status"] = "degraded"
			}
		}
	}

	writeJSON(w, status, resp)
}
