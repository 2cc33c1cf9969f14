package db

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PoolStats is the connection pool section of /health/db.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
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
		Healthy:         stat.TotalConns() > 0,
	}
}

// SchemaStatus compares the applied schema with the migrations shipped in
// the binary. Pending is set when the database is behind.
type SchemaStatus struct {
	Applied int  `json:"applied"`
	Latest  int  `json:"latest"`
	Pending bool `json:"pending"`
}

// LatestVersion returns the highest migration version in files, or 0.
func LatestVersion(files fs.FS) int {
	migrations, err := NewMigrator(nil, files, zerolog.Nop()).LoadMigrations()
	if err != nil || len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

func newSchemaStatus(applied, latest int) SchemaStatus {
	return SchemaStatus{Applied: applied, Latest: latest, Pending: applied < latest}
}

// HealthHandler serves /health/db: a ping, the pool counters and whether the
// schema is behind the embedded migrations. A pending schema reports
// "degraded" but still answers 200.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	latest := LatestVersion(MigrationsFS())
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := GetPoolStats(pool)
		if err := pool.Ping(ctx); err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		var applied int
		// A missing _migrations table reads as version 0.
		_ = pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM _migrations`).Scan(&applied)
		schema := newSchemaStatus(applied, latest)

		status := "healthy"
		if schema.Pending {
			status = "degraded"
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": status,
			"schema": schema,
			"pool":   stats,
		})
	}
}
