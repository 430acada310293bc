package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/coter/internal/actorctx"
	"github.com/geocoder89/coter/internal/auth"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AccountReader interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

type AuthMiddleware struct {
	tokens   TokenVerifier
	accounts AccountReader
}

func NewAuthMiddleware(tokens TokenVerifier, accounts AccountReader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

const bearerPrefix = "Bearer "

// Protect authenticates the request from its bearer token and attaches the live
// account, loaded with exactly one store lookup. Every token failure gets the same 401.
func (m *AuthMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if raw == "" || strings.ContainsAny(raw, " \t") {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		a, err := m.accounts.GetByID(c.Request.Context(), claims.SubjectID())
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			slog.Default().ErrorContext(c.Request.Context(), "auth_account_lookup_failed",
				"subject", claims.SubjectID(),
				"err", err,
			)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Could not authenticate request")
			return
		}

		c.Set(CtxAccount, a)
		c.Request = c.Request.WithContext(actorctx.WithAccount(c.Request.Context(), a))

		c.Next()
	}
}

// AccountFromContext returns the account attached by Protect.
func AccountFromContext(c *gin.Context) (account.Account, bool) {
	v, ok := c.Get(CtxAccount)
	if !ok {
		return account.Account{}, false
	}
	a, ok := v.(account.Account)
	return a, ok && a.ID != ""
}
