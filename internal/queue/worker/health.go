package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is what readiness depends on besides the ready flag (the pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness, readiness and the in-process job counters.
func (w *Worker) HealthHandler(db Pinger, metrics http.Handler) http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// readiness: the flag flips off on shutdown
	r.GET("/readyz", func(ctx *gin.Context) {
		if !w.IsReady() {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if db != nil {
			cctx, cancel := context.WithTimeout(ctx.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := db.Ping(cctx); err != nil {
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db": "down"})
				return
			}
		}

		ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/stats", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, w.metrics.Snapshot())
	})

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}
