package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/lingo-api/internal/api/shared"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/service"
	"github.com/phrazzld/lingo-api/internal/service/auth"
	"github.com/phrazzld/lingo-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidAdminSecret):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotAdmin),
		errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrUnsupportedLanguage),
		errors.Is(err, domain.ErrInvalidTaskType):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	// Map specific error types to user-friendly messages
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidAdminSecret):
		return "Invalid credentials"

	// Authorization errors
	case errors.Is(err, service.ErrNotAdmin),
		errors.Is(err, service.ErrUnauthorized):
		return "Forbidden"

	// Not found errors
	case errors.Is(err, store.ErrLearnerNotFound):
		return "Learner not found"

	case errors.Is(err, store.ErrTaskRecordNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrAuthorizationNotFound):
		return "Learner is not authorized"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return "Already exists"

	case errors.Is(err, store.ErrConflict):
		return "Conflicting update, please retry"

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidDifficulty):
		return "Unknown difficulty tier"

	case errors.Is(err, domain.ErrUnsupportedLanguage):
		return "Unsupported language code"

	case errors.Is(err, domain.ErrInvalidTaskType):
		return "Unknown task type"

	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid input"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes a JSON error response for the given error, mapping
// it onto a status code and a safe message. A non-empty override replaces
// the derived message; the raw error never reaches the client.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, override string) {
	status := MapErrorToStatusCode(err)
	message := override
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Extract the field name and validation tag
		// Example format: "Key: 'LoginRequest.Secret' Error:Field validation for 'Secret' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
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
	case "oneof":
		return "invalid value"
	case "gt", "gte", "lt", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}
