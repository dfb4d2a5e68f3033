// Package services defines the business logic for deposits, collections, and
// enrollment. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrUnknownRecipient is returned when a deposit or enrollment names a
	// recipient that does not exist. Rejected before any side effect.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrDepositNotAllowed is returned when the capability check denies the
	// deposit. The default policy allows everything; the error exists for
	// future permissioning.
	ErrDepositNotAllowed = errors.New("deposit not allowed for this recipient")

	// ErrNoLockerAvailable is returned when the pool is exhausted. It is a
	// terminal, user-visible outcome: the workflow does not retry and no
	// hardware call is made.
	ErrNoLockerAvailable = errors.New("no locker available")

	// ErrHardwareUnreachable is returned when every hardware retry attempt
	// was exhausted. On the deposit path the claimed locker has been rolled
	// back; on the collection path the locker stays occupied and the
	// credential stays live so collection can be retried.
	ErrHardwareUnreachable = errors.New("locker hardware unreachable")

	// ErrInvalidCredential is returned for an unknown, malformed, tampered,
	// or already-redeemed credential. Deliberately indistinguishable cases:
	// the response must not reveal whether a token ever existed.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrNothingWaiting is returned by identity collection when no package
	// is waiting for the presented identity.
	ErrNothingWaiting = errors.New("no packages waiting")

	// ErrAlreadyEnrolled is returned when a recipient already holds an
	// identity credential (one-to-one invariant).
	ErrAlreadyEnrolled = errors.New("recipient already has an identity credential")

	// ErrDuplicateRecipient is returned when a recipient with the same email
	// already exists.
	ErrDuplicateRecipient = errors.New("recipient already exists")
)
