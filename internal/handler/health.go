package handler

import (
	"context"
	"net/http"
	"time"

	"fabrisys/internal/infra"
	"fabrisys/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports dead letter queue depth;
// never exposes credentials or internals.
// Redis is optional: a nil client reports "disabled" and does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, agendaCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		var dlq gin.H
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else {
				dlq = gin.H{}
				for _, q := range []string{worker.QueueNotifications, worker.QueueAgenda} {
					if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
						dlq[q] = n
					}
				}
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if dlq != nil {
			body["dlq"] = dlq
		}
		if agendaCB != nil {
			body["agenda"] = agendaCB.State().String()
		}
		c.JSON(status, body)
	}
}
