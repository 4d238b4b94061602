package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Health is the body of GET /health/db.
type Health struct {
	Status            string     `json:"status"`
	Error             string     `json:"error,omitempty"`
	PendingMigrations int        `json:"pending_migrations"`
	Pool              *PoolStats `json:"pool,omitempty"`
}

func newHealth(pingErr error, pendingMigrations int, stats *PoolStats) (int, Health) {
	h := Health{Status: "healthy", PendingMigrations: pendingMigrations, Pool: stats}
	switch {
	case pingErr != nil:
		h.Status = "unhealthy"
		h.Error = pingErr.Error()
		return http.StatusServiceUnavailable, h
	case pendingMigrations > 0:
		h.Status = "degraded"
	}
	return http.StatusOK, h
}

// HealthHandler pings the database and reports pool usage. When migrator is
// non-nil unapplied migrations mark the database as degraded.
func HealthHandler(pool *pgxpool.Pool, migrator *Migrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		pingErr := pool.Ping(ctx)

		pendingCount := 0
		if pingErr == nil && migrator != nil {
			if statuses, err := migrator.Status(ctx); err == nil {
				for _, s := range statuses {
					if !s.Applied {
						pendingCount++
					}
				}
			}
		}

		code, body := newHealth(pingErr, pendingCount, GetPoolStats(pool))
		return c.JSON(code, body)
	}
}
