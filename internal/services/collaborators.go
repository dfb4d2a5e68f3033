// Package services – external collaborators.
//
// This file declares the narrow interfaces through which the workflows talk
// to everything outside the core: the hardware gateway, the notification
// channel, and the deposit capability check. Implementations are injected at
// wiring time; tests substitute fakes.
package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-locker-backend/internal/domain"
)

// HardwareGateway is the actuator interface to the physical locker-opening
// mechanism. Open retries internally and reports only terminal failure;
// OpenMany returns the subset of IDs that failed.
type HardwareGateway interface {
	Open(lockerID uint) error
	OpenMany(lockerIDs []uint) []uint
}

// Notifier delivers the serialized credential payload to the recipient's
// contact address. Delivery mechanics (mail, SMS, push) live outside this
// service. A notification failure never fails a committed deposit; the
// caller logs it and moves on.
type Notifier interface {
	NotifyDeposit(ctx context.Context, r *domain.Recipient, payload string, lockerID uint) error
}

// LogNotifier is the default Notifier: it records the notification in the
// structured log instead of delivering it. Useful for development and as a
// stand-in until a real channel is wired up. The credential payload itself
// is never logged; it is a bearer secret.
type LogNotifier struct{}

// NotifyDeposit implements Notifier.
func (LogNotifier) NotifyDeposit(_ context.Context, r *domain.Recipient, _ string, lockerID uint) error {
	log.Info().
		Str("recipient_id", r.ID).
		Str("email", r.Email).
		Uint("locker_id", lockerID).
		Msg("deposit notification (log only)")
	return nil
}

// DepositPolicy decides whether a recipient may receive a deposit. The
// interface point exists for future permissioning; the shipped policy
// allows everything.
type DepositPolicy interface {
	AllowDeposit(ctx context.Context, r *domain.Recipient) error
}

// AllowAllPolicy permits every deposit.
type AllowAllPolicy struct{}

// AllowDeposit implements DepositPolicy.
func (AllowAllPolicy) AllowDeposit(context.Context, *domain.Recipient) error { return nil }
