package middlewares

import (
	"github.com/gin-gonic/gin"
)

// abortWithError stops the chain with the same envelope the handlers use:
// {"message": ..., "error": {"code", "message", "requestId"}}.
func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	rid, _ := reqID.(string)

	errBody := gin.H{
		"code":    code,
		"message": message,
	}
	if rid != "" {
		errBody["requestId"] = rid
	}

	c.AbortWithStatusJSON(status, gin.H{
		"message": message,
		"error":   errBody,
	})
}
