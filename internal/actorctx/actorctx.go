package actorctx

import (
	"context"

	"github.com/geocoder89/coter/internal/domain/account"
)

type ctxKey struct{}

// WithAccount attaches the authenticated account to ctx so code below the HTTP
// layer (logging, stores) can see who is acting.
func WithAccount(ctx context.Context, a account.Account) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func AccountFrom(ctx context.Context) (account.Account, bool) {
	a, ok := ctx.Value(ctxKey{}).(account.Account)

	return a, ok && a.ID != ""
}

// ActorID returns the authenticated account id, or "" for anonymous requests.
func ActorID(ctx context.Context) string {
	a, ok := AccountFrom(ctx)
	if !ok {
		return ""
	}
	return a.ID
}
