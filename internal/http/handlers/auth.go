package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/coter/internal/auth"
	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/geocoder89/coter/internal/security"
	"github.com/gin-gonic/gin"
)

type AccountStore interface {
	Create(ctx context.Context, a account.Account) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	Burn(plain string)
}

type TokenIssuer interface {
	Issue(subjectID, role string) (string, *auth.Claims, error)
}

type AuthHandler struct {
	accounts   AccountStore
	hasher     PasswordHasher
	tokens     TokenIssuer
	inviteCode string
	prom       *observability.Prom
}

func NewAuthHandler(accounts AccountStore, hasher PasswordHasher, tokens TokenIssuer, inviteCode string, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		hasher:     hasher,
		tokens:     tokens,
		inviteCode: inviteCode,
		prom:       prom,
	}
}

const invalidCredentials = "Invalid email or password"

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req account.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// validator counts runes; bcrypt's limit is in bytes.
	if len(req.Password) > security.MaxPasswordBytes {
		RespondBadRequest(ctx, "Password must be at most 72 bytes", gin.H{"password": "max 72 bytes"})
		return
	}

	if req.Role == account.RoleTherapist {
		if h.inviteCode == "" {
			h.prom.ObserveAuth("register", "misconfigured")
			RespondError(ctx, http.StatusInternalServerError, "misconfigured", "Therapist registration is not available", nil)
			return
		}

		if subtle.ConstantTimeCompare([]byte(req.InviteCode), []byte(h.inviteCode)) != 1 {
			h.prom.ObserveAuth("register", "bad_invite")
			RespondForbidden(ctx, "Invalid therapist invite code")
			return
		}
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			RespondBadRequest(ctx, "Password must be at most 72 bytes", gin.H{"password": "max 72 bytes"})
			return
		}

		RespondInternal(ctx, "Could not create account", err)
		return
	}

	a, err := h.accounts.Create(cctx, account.New(req.Email, hash, req.FirstName, req.LastName, req.Role))

	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			h.prom.ObserveAuth("register", "conflict")
			RespondConflict(ctx, "email_taken", "An account with this email already exists")
			return
		}

		RespondInternal(ctx, "Could not create account", err)
		return
	}

	token, claims, err := h.tokens.Issue(a.ID, string(a.Role))

	if err != nil {
		RespondInternal(ctx, "Could not issue token", err)
		return
	}

	h.prom.ObserveAuth("register", "ok")

	RespondMessage(ctx, http.StatusCreated, "Registration successful", gin.H{
		"token":     token,
		"expiresAt": claims.ExpiresAt.Time,
		"user":      a,
	})
}

// Login answers every credential failure with the same 401 so callers cannot
// tell an unknown email from a wrong password.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req account.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	found, err := h.accounts.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			h.hasher.Burn(req.Password)
			h.prom.ObserveAuth("login", "invalid_credentials")
			RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentials)
			return
		}

		RespondInternal(ctx, "Could not log in", err)
		return
	}

	if !h.hasher.Verify(req.Password, found.PasswordHash) {
		h.prom.ObserveAuth("login", "invalid_credentials")
		RespondUnAuthorized(ctx, "invalid_credentials", invalidCredentials)
		return
	}

	token, claims, err := h.tokens.Issue(found.ID, string(found.Role))

	if err != nil {
		RespondInternal(ctx, "Could not issue token", err)
		return
	}

	h.prom.ObserveAuth("login", "ok")

	RespondMessage(ctx, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"expiresAt": claims.ExpiresAt.Time,
		"user":      found,
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	a, ok := middlewares.AccountFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Profile loaded", gin.H{"user": a})
}
