package middlewares

import (
	"net/http"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// RequireRole admits the request when the live account's role is one of roles.
// It must be mounted after Protect.
func RequireRole(roles ...account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := AccountFromContext(c)

		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		for _, r := range roles {
			if a.Role == r {
				c.Next()
				return
			}
		}

		abortWithError(c, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
	}
}
