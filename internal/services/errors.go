package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pickline/backend/internal/store"
)

// Service errors. Messages are safe to show to the end user; wrap them with
// fmt.Errorf("%w: ...") to add detail.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidPicks      = errors.New("invalid picks")
	ErrAuth              = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadySettled    = errors.New("already settled")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("too many attempts")
	ErrTimeout           = errors.New("request timed out")
)

// ErrorStatus maps an error to its HTTP status and machine-readable code.
// Unknown errors are internal.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, ErrInvalidPicks):
		return http.StatusBadRequest, "INVALID_PICKS"
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized, "AUTH_ERROR"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrAlreadySettled):
		return http.StatusConflict, "ALREADY_SETTLED"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// IsInternal reports whether err falls outside the service taxonomy.
func IsInternal(err error) bool {
	status, _ := ErrorStatus(err)
	return status == http.StatusInternalServerError
}

// notFound converts store.ErrNotFound into ErrNotFound with a subject.
func notFound(err error, subject string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, subject)
	}
	return err
}

// ctxErr reports a cancelled or expired context as ErrTimeout. Drivers
// surface cancellation in their own error types, so the context is checked
// directly.
func ctxErr(ctx context.Context, err error) error {
	if err == nil || !IsInternal(err) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
