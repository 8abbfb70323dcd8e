package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/service"
)

// apiError es el cuerpo de toda respuesta de error.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor traduce la categoria del error a status, codigo y mensaje publico.
// Conflict y Forbidden nunca exponen el detalle.
func statusFor(err error) (int, apiError) {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, apiError{Error: "username is not available", Code: "username_taken"}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, apiError{Error: "could not create account", Code: "conflict"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, apiError{Error: "conflict", Code: "conflict"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, apiError{Error: "forbidden", Code: "forbidden"}
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		return http.StatusForbidden, apiError{Error: "email not confirmed", Code: "email_not_confirmed"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, apiError{Error: "not found", Code: "not_found"}
	case errors.Is(err, domain.ErrInvalidCursor):
		return http.StatusBadRequest, apiError{Error: "invalid cursor", Code: "invalid_cursor"}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, apiError{Error: err.Error(), Code: "invalid_input"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, apiError{Error: "invalid credentials", Code: "invalid_credentials"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, apiError{Error: "authentication required", Code: "unauthenticated"}
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, apiError{Error: "too many requests", Code: "rate_limited"}
	case errors.Is(err, service.ErrUnsupported):
		return http.StatusNotImplemented, apiError{Error: "not supported", Code: "unsupported"}
	case errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, apiError{Error: "service temporarily unavailable", Code: "unavailable"}
	default:
		return http.StatusInternalServerError, apiError{Error: "internal error", Code: "internal"}
	}
}

// writeError loguea y responde el error traducido.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, body := statusFor(err)
	fields := []zap.Field{zap.String("op", op), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid request", zap.String("op", op), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid request", Code: "invalid_input"})
}
