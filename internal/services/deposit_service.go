// Package services – DepositService
//
// This file implements the deposit workflow: validate the recipient, find or
// claim a locker, open the hardware, mint the single-use credential, and
// notify the recipient. It is the central state machine of the system; every
// ordering decision below exists to keep partial failures recoverable.
//
// Ordering: the locker is claimed with a single conditional update BEFORE the
// hardware call (claiming and finding must be one atomic step or two
// concurrent deposits can win the same locker), and the claim is rolled back
// if the hardware never opened. The credential is minted only after a
// confirmed open, so no credential ever points at a door that stayed shut.
// No store lock is ever held across the hardware call; its retry loop can
// take seconds.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
	"github.com/tbourn/go-locker-backend/internal/repo"
)

// DepositService orchestrates deposits. All state mutation goes through the
// repositories; the service holds no mutable state of its own and is safe
// for concurrent use.
type DepositService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateway opens physical lockers.
	Gateway HardwareGateway
	// Notifier delivers the credential to the recipient. Optional; nil skips
	// notification entirely.
	Notifier Notifier
	// Policy is the deposit capability check. Optional; nil allows all.
	Policy DepositPolicy
}

// DepositResult is what a committed deposit hands back to the caller.
type DepositResult struct {
	Credential *domain.DropCredential
	// Payload is the encoded public form of the credential, ready for QR
	// rendering or notification.
	Payload string
	// Resumed is true when an earlier partially-completed deposit for the
	// same recipient was picked up instead of claiming a new locker.
	Resumed bool
}

// Deposit runs the deposit workflow for recipientID.
//
// Failure modes: ErrUnknownRecipient and ErrDepositNotAllowed reject the
// request before any side effect; ErrNoLockerAvailable is terminal with
// nothing to undo; ErrHardwareUnreachable rolls the freshly claimed locker
// back to unoccupied so a failed deposit never strands one.
func (s *DepositService) Deposit(ctx context.Context, recipientID string) (*DepositResult, error) {
	r, err := repo.GetRecipient(ctx, s.DB, recipientID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnknownRecipient
		}
		return nil, err
	}
	if s.Policy != nil {
		if err := s.Policy.AllowDeposit(ctx, r); err != nil {
			return nil, ErrDepositNotAllowed
		}
	}

	// A previous deposit attempt may have committed locker + credential and
	// then lost the response. Reuse that locker instead of claiming another.
	if existing, err := repo.GetOutstandingForRecipient(ctx, s.DB, recipientID); err == nil {
		return s.resume(ctx, r, existing)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	locker, err := repo.ClaimFree(ctx, s.DB)
	if err != nil {
		if errors.Is(err, repo.ErrPoolExhausted) {
			return nil, ErrNoLockerAvailable
		}
		return nil, err
	}

	if err := s.Gateway.Open(locker.ID); err != nil {
		s.release(ctx, locker.ID)
		return nil, ErrHardwareUnreachable
	}

	cred, err := repo.CreateDropCredential(ctx, s.DB, recipientID, locker.ID)
	if err != nil {
		// The door is physically open but nothing was committed; release the
		// claim so the locker is not stranded. Operators see the log line.
		log.Error().Err(err).Uint("locker_id", locker.ID).Msg("credential issuance failed after open")
		s.release(ctx, locker.ID)
		return nil, err
	}

	res := &DepositResult{Credential: cred, Payload: cred.Payload().Encode()}
	s.notify(ctx, r, res)
	return res, nil
}

// resume re-runs the tail of the workflow for an outstanding credential:
// reopen the locker for the depositor and re-send the notification. The
// locker stays occupied and the credential stays live on hardware failure;
// the deposit is already committed, there is nothing to roll back.
func (s *DepositService) resume(ctx context.Context, r *domain.Recipient, cred *domain.DropCredential) (*DepositResult, error) {
	if err := s.Gateway.Open(cred.LockerID); err != nil {
		return nil, ErrHardwareUnreachable
	}
	res := &DepositResult{Credential: cred, Payload: cred.Payload().Encode(), Resumed: true}
	s.notify(ctx, r, res)
	return res, nil
}

// release undoes a claim after a failed deposit. A failed release leaves the
// locker stranded until an operator frees it, so it is logged loudly.
func (s *DepositService) release(ctx context.Context, lockerID uint) {
	if err := repo.FreeLocker(ctx, s.DB, lockerID); err != nil {
		log.Error().Err(err).Uint("locker_id", lockerID).Msg("failed to roll back locker claim")
	}
}

// notify sends the credential to the recipient. The deposit has already
// committed by the time this runs: a delivery failure is logged for
// operational visibility, never surfaced to the depositor.
func (s *DepositService) notify(ctx context.Context, r *domain.Recipient, res *DepositResult) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyDeposit(ctx, r, res.Payload, res.Credential.LockerID); err != nil {
		log.Warn().Err(err).
			Str("recipient_id", r.ID).
			Uint("locker_id", res.Credential.LockerID).
			Msg("deposit notification failed")
	}
}
