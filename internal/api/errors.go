package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/imagebatch/internal/api/shared"
	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/gemini"
	"github.com/phrazzld/imagebatch/internal/service"
	"github.com/phrazzld/imagebatch/internal/store"
	"github.com/phrazzld/imagebatch/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, gemini.ErrInvalidImage),
		errors.Is(err, gemini.ErrImageTooSmall),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, gemini.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	case errors.Is(err, gemini.ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	case errors.Is(err, gemini.ErrInvalidResponse),
		errors.Is(err, domain.ErrTaskCreation):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, service.ErrEmptyBatch):
		return "Batch contains no rows"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return SanitizeValidationError(err)
	case errors.Is(err, gemini.ErrImageTooSmall):
		return "Image data too small"
	case errors.Is(err, gemini.ErrInvalidImage):
		return "Invalid base64 image"
	case errors.Is(err, gemini.ErrContentBlocked):
		return "Image content was blocked"
	case errors.Is(err, gemini.ErrRateLimited):
		return "Rate limit exhausted, try again later"
	case errors.Is(err, gemini.ErrInvalidResponse):
		return "Image analysis returned an invalid response"
	case errors.Is(err, task.ErrQueueFull):
		return "Too many batches in progress, try again later"
	case errors.Is(err, domain.ErrTaskCreation):
		return "Failed to start task."
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	// domain validation errors carry a short reason after the sentinel
	if errors.Is(err, domain.ErrValidation) {
		msg := err.Error()
		if i := strings.Index(msg, domain.ErrValidation.Error()+": "); i >= 0 {
			return "Validation error: " + msg[i+len(domain.ErrValidation.Error())+2:]
		}
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte":
		return "must not be negative"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted detail. defaultMsg replaces the generic message of unmapped
// errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if errors.As(err, new(validator.ValidationErrors)) {
		message = SanitizeValidationError(err)
	}
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
