package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of leases are
// active. A nil stats func reports an empty pool, a nil uptime func zero.
func Health(stats func() models.PoolStats, uptime func() time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ps models.PoolStats
		if stats != nil {
			ps = stats()
		}

		var up time.Duration
		if uptime != nil {
			up = uptime()
		}

		status := "healthy"
		if ps.MaxLeases > 0 && ps.ActiveLeases > int(float64(ps.MaxLeases)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    up.Round(time.Second).String(),
			PoolStats: ps,
			Version:   Version,
		})
	}
}
