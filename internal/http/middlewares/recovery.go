package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the JSON 500 envelope instead of gin's empty body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		reqID, _ := c.Get(CtxRequestID)

		slog.Default().ErrorContext(c.Request.Context(), "panic_recovered",
			"panic", recovered,
			"route", c.FullPath(),
			"request_id", reqID,
		)

		abortWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error")
	})
}
