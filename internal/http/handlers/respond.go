package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/coter/internal/actorctx"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondError writes {"message": ..., "error": {...}}; message is duplicated at
// the top level so every response carries one.
func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"message": message,
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondInternal logs err with the request context and answers with a generic
// 500; err never reaches the client.
func RespondInternal(ctx *gin.Context, message string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
		"route", ctx.FullPath(),
		"request_id", requestIDFrom(ctx),
		"account_id", actorctx.ActorID(ctx.Request.Context()),
		"err", err,
	)

	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondMessage is the success shape for mutations: a message plus named payloads.
func RespondMessage(ctx *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"message": message}
	for k, v := range fields {
		body[k] = v
	}
	ctx.JSON(status, body)
}
