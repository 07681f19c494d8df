package handlers

import (
	"errors"
	"net/http"

	"github.com/booali9/obe-comiler-backend/internal/domain/form"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/http/middlewares"
	"github.com/booali9/obe-comiler-backend/internal/service"
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

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
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

func RespondForbidden(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusForbidden, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is treated as internal so new failure modes never
// leak detail by default.
func RespondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDomainRejected):
		RespondForbidden(ctx, "domain_rejected", service.ErrDomainRejected.Error())

	case errors.Is(err, service.ErrBadCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", service.ErrBadCredentials.Error())

	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, form.ErrNotFound):
		RespondNotFound(ctx, "Resource not found")

	case errors.Is(err, service.ErrConflict):
		RespondConflict(ctx, "email_taken", service.ErrConflict.Error())

	case errors.Is(err, service.ErrInvalidOrExpired):
		RespondBadRequest(ctx, service.ErrInvalidOrExpired.Error(), nil)

	case errors.Is(err, service.ErrIncorrectOTP):
		RespondBadRequest(ctx, service.ErrIncorrectOTP.Error(), nil)

	case errors.Is(err, service.ErrInvalidInput):
		RespondBadRequest(ctx, "Invalid input", nil)

	case errors.Is(err, service.ErrDeliveryFailed):
		RespondInternal(ctx, "There was an error sending the email. Try again later.")

	default:
		// covers ErrStoreUnavailable, ErrCorruptCredential and surprises
		RespondInternal(ctx, "Something went wrong. Please try again later.")
	}
}
