// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, conflict) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (e.g., no_locker_available, hardware_unreachable)
//     are reserved for workflow outcomes that cannot be conveyed by status alone.
//   - All error responses must include both an HTTP status and one of these codes.
package handlers

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeForbidden   = "forbidden"
	ErrCodeInternal    = "internal_error"

	// Operation-level failure codes for 5xx responses:
	ErrCodeDepositFailed = "deposit_failed"
	ErrCodeCollectFailed = "collect_failed"
	ErrCodeCreateFailed  = "create_failed"
	ErrCodeListFailed    = "list_failed"

	// Domain-specific:
	ErrCodeNoLockerAvailable   = "no_locker_available"
	ErrCodeHardwareUnreachable = "hardware_unreachable"
	ErrCodeInvalidCredential   = "invalid_credential"
	ErrCodeNothingWaiting      = "nothing_waiting"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
)
