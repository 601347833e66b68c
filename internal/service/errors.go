package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrUnauthorized indicates the learner is not on the allow-list.
	// Replies to unauthorized learners disclose nothing beyond the fact
	// that access is closed. API layer should map this to HTTP 403 Forbidden.
	ErrUnauthorized = errors.New("learner is not authorized")

	// ErrNotAdmin indicates a learner invoked an admin-only operation
	// without being a configured admin.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotAdmin = errors.New("admin privileges required")

	// ErrInvalidInput indicates a command argument outside the accepted set,
	// such as an unknown difficulty tier or an unsupported language code.
	// The caller turns this into a corrective reply; nothing was mutated.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidInput = errors.New("invalid input")
)
