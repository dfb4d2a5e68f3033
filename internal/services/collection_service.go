// Package services – CollectionService
//
// This file implements the collection workflow: resolve the presented
// credential, open the associated locker(s), and clean up per locker that
// actually opened. One orchestration serves both entry modes (a single-use
// token identifying one locker, and a standing identity credential fanning
// out to every waiting locker), parameterized by how the credential resolves
// rather than by subclassing the flow.
//
// Cleanup is coupled to open success per item in both modes: a locker that
// failed to open stays occupied and its credential stays live, so the
// recipient can simply present the credential again. A consumed credential
// always corresponds to a door that reported open.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
	"github.com/tbourn/go-locker-backend/internal/repo"
)

// CollectionService orchestrates collections. Safe for concurrent use.
type CollectionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateway opens physical lockers.
	Gateway HardwareGateway
}

// CollectionResult reports the per-locker outcome of a collection.
type CollectionResult struct {
	// Opened lists lockers that opened, were freed, and whose credentials
	// were redeemed.
	Opened []uint `json:"opened"`
	// Failed lists lockers this call did not complete: either the door did
	// not open (the locker stays occupied and its credential stays live, so
	// the collection can be retried) or a concurrent collection redeemed the
	// credential first.
	Failed []uint `json:"failed"`
}

// CollectByToken redeems a single-use credential. The presented string may be
// the raw token or the encoded payload from the QR artifact; either way the
// token is re-resolved through the store and the stored bindings win;
// payload fields are never trusted, only cross-checked.
//
// Returns ErrInvalidCredential for anything that does not resolve to a live
// credential, including a credential that a concurrent collection redeemed
// after this call resolved it, and ErrHardwareUnreachable (with the locker
// left occupied and the credential intact) when the door did not open.
func (s *CollectionService) CollectByToken(ctx context.Context, presented string) (*CollectionResult, error) {
	token, payload, hadPayload := parsePresented(presented)
	if token == "" {
		return nil, ErrInvalidCredential
	}

	cred, err := repo.GetDropCredentialByToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}
	// A payload whose claims disagree with the store is tampered or stale.
	if hadPayload {
		if payload.RecipientID != "" && payload.RecipientID != cred.RecipientID {
			return nil, ErrInvalidCredential
		}
		if payload.LockerID != 0 && payload.LockerID != cred.LockerID {
			return nil, ErrInvalidCredential
		}
	}

	res, lost := s.collect(ctx, []domain.DropCredential{*cred})
	if len(res.Opened) == 0 {
		if len(lost) > 0 {
			return res, ErrInvalidCredential
		}
		return res, ErrHardwareUnreachable
	}
	return res, nil
}

// CollectByIdentity opens every locker currently holding a package for the
// identity credential's owner. The presented string may be the raw identity
// token (e.g. an NFC tag serial) or an encoded payload.
//
// Returns ErrInvalidCredential when the identity does not resolve and
// ErrNothingWaiting when it resolves but no package is waiting. Partial
// hardware failure is not an error at this level: the result's Failed slice
// carries the lockers to retry.
func (s *CollectionService) CollectByIdentity(ctx context.Context, presented string) (*CollectionResult, error) {
	token, _, _ := parsePresented(presented)
	if token == "" {
		return nil, ErrInvalidCredential
	}

	identity, err := repo.GetIdentityCredentialByToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	waiting, err := repo.ListOutstandingForRecipient(ctx, s.DB, identity.RecipientID)
	if err != nil {
		return nil, err
	}
	if len(waiting) == 0 {
		return nil, ErrNothingWaiting
	}

	res, _ := s.collect(ctx, waiting)
	return res, nil
}

// collect opens the lockers behind creds and cleans up each one that opened:
// free the locker, then redeem its credential. Order matters: freeing first
// means a crash between the two steps leaves a free locker with a live
// credential, which resume handling tolerates, whereas redeeming first could
// strand an occupied locker nobody can open.
//
// The redeem is the single-winner step. Two collections racing on the same
// credential both get the door open, but the conditional redeem update lets
// exactly one through; the loser's locker goes to Failed and its id is also
// returned in lost so single-token callers can report the credential as spent.
func (s *CollectionService) collect(ctx context.Context, creds []domain.DropCredential) (*CollectionResult, []uint) {
	byLocker := make(map[uint]domain.DropCredential, len(creds))
	ids := make([]uint, 0, len(creds))
	for _, c := range creds {
		byLocker[c.LockerID] = c
		ids = append(ids, c.LockerID)
	}

	var failed []uint
	if len(ids) == 1 {
		if err := s.Gateway.Open(ids[0]); err != nil {
			failed = ids
		}
	} else {
		failed = s.Gateway.OpenMany(ids)
	}

	failedSet := make(map[uint]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}

	res := &CollectionResult{}
	var lost []uint
	for _, id := range ids {
		if _, bad := failedSet[id]; bad {
			res.Failed = append(res.Failed, id)
			continue
		}
		if err := repo.FreeLocker(ctx, s.DB, id); err != nil {
			log.Error().Err(err).Uint("locker_id", id).Msg("failed to free locker after open")
		}
		if err := repo.RedeemDropCredential(ctx, s.DB, byLocker[id].Token); err != nil {
			res.Failed = append(res.Failed, id)
			if errors.Is(err, repo.ErrNotFound) {
				// Concurrent redeem of the same token: the other caller won
				// and this collection does not count as opened.
				log.Warn().Uint("locker_id", id).Msg("credential already redeemed")
				lost = append(lost, id)
			} else {
				log.Error().Err(err).Uint("locker_id", id).Msg("failed to redeem credential after open")
			}
			continue
		}
		res.Opened = append(res.Opened, id)
	}
	return res, lost
}

// parsePresented normalizes a presented credential string: an encoded payload
// yields its embedded token plus the decoded claims for cross-checking; any
// other non-empty string is treated as a raw token.
func parsePresented(presented string) (token string, payload domain.CredentialPayload, hadPayload bool) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return "", domain.CredentialPayload{}, false
	}
	if p, err := domain.DecodePayload(presented); err == nil {
		return p.Token, p, true
	}
	return presented, domain.CredentialPayload{}, false
}
