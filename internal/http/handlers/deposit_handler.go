// Deposit HTTP handlers.
//
// This file exposes the REST endpoint for the deposit workflow:
//   - POST /deposits   (claim a locker, open it, and issue a pickup credential)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
//
// Idempotency:
// If the courier supplies an Idempotency-Key header and a previous successful
// deposit exists for (user, recipient, key), the handler returns the recorded
// credential and sets `Idempotency-Replayed: true` instead of claiming a
// second locker.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-locker-backend/internal/domain"
	"github.com/tbourn/go-locker-backend/internal/repo"
	"github.com/tbourn/go-locker-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// DepositService defines the deposit workflow consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DepositService interface {
	// Deposit claims a free locker for recipientID, opens it, and issues the
	// single-use pickup credential.
	Deposit(ctx context.Context, recipientID string) (*services.DepositResult, error)
}

// CollectionService defines the collection workflows consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CollectionService interface {
	// CollectByToken redeems a single-use credential and opens its locker.
	CollectByToken(ctx context.Context, presented string) (*services.CollectionResult, error)
	// CollectByIdentity opens every locker waiting for the identity's owner.
	CollectByIdentity(ctx context.Context, presented string) (*services.CollectionResult, error)
}

// EnrollmentService defines recipient registration and identity enrollment.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type EnrollmentService interface {
	// RegisterRecipient creates a recipient addressable by deposits.
	RegisterRecipient(ctx context.Context, name, email string) (*domain.Recipient, error)
	// EnrollIdentity issues the standing identity credential for a recipient.
	EnrollIdentity(ctx context.Context, recipientID, serial string) (*domain.IdentityCredential, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for deposits, collections, lockers, and
// enrollment. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	depositSvc DepositService
	collectSvc CollectionService
	enrollSvc  EnrollmentService

	// DB is the read-side store for the locker views and the idempotent
	// replay path. The workflows themselves only run through the service
	// interfaces above; nil (handlers wired with non-persistent fakes)
	// disables the views and makes replay a no-op.
	DB *gorm.DB

	// LockerStatusCodes enables the legacy gateway convention of answering a
	// single-locker collection with status 200+lockerID. Off by default; only
	// station firmware that predates the JSON result body needs it.
	LockerStatusCodes bool

	// IdempotencyTTL bounds how long a recorded deposit can be replayed.
	// Zero means defaultIdempotencyTTL.
	IdempotencyTTL time.Duration
}

// defaultIdempotencyTTL is how long deposit results stay replayable when the
// operator has not configured a TTL.
const defaultIdempotencyTTL = 24 * time.Hour

// New constructs and returns a Handlers instance bound to the given services.
func New(depositSvc DepositService, collectSvc CollectionService, enrollSvc EnrollmentService) *Handlers {
	return &Handlers{depositSvc: depositSvc, collectSvc: collectSvc, enrollSvc: enrollSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-courier". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-courier"
}

//
// DTOs
//

// DepositRequest is the JSON payload for starting a deposit.
type DepositRequest struct {
	// RecipientID identifies who the package is for (UUID).
	RecipientID string `json:"recipient_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// DepositResponse is the JSON envelope for a committed deposit.
type DepositResponse struct {
	// Token is the single-use pickup credential.
	Token string `json:"token" example:"3f0c9a7d2b414e6f8a1c5d9e0b7f2a64"`
	// Payload is the encoded credential, ready for QR rendering.
	Payload string `json:"payload"`
	// LockerID is the locker that opened for the courier.
	LockerID uint `json:"locker_id" example:"4"`
	// RecipientID echoes the request.
	RecipientID string `json:"recipient_id"`
	// Resumed is true when an earlier interrupted deposit for the same
	// recipient was picked up instead of claiming a new locker.
	Resumed bool `json:"resumed,omitempty"`
}

//
// Handlers
//

// PostDeposit godoc
// @ID          postDeposit
// @Summary     Deposit a package
// @Description Claims a free locker for the recipient, opens it, and returns the pickup credential.
// @Description Supports idempotency via the Idempotency-Key header (same key → same credential).
// @Tags        Deposits
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Courier ID"  example(courier-7)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.DepositRequest  true  "Deposit payload"
//
// @Success     201  {object}  handlers.DepositResponse  "Credential issued"
// @Success     200  {object}  handlers.DepositResponse  "Interrupted deposit resumed"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse    "Recipient not found"
// @Failure     409  {object}  handlers.ErrorResponse    "No locker available"
// @Failure     502  {object}  handlers.ErrorResponse    "Locker hardware unreachable"
// @Router      /deposits [post]
func (h *Handlers) PostDeposit(c *gin.Context) {
	ctx := c.Request.Context()

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id required")
		return
	}
	if _, err := uuid.Parse(req.RecipientID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id must be a UUID")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" && h.DB != nil {
		if rec, err := repo.GetIdempotency(ctx, h.DB, currentUser, req.RecipientID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := repo.GetDropCredentialByToken(ctx, h.DB, rec.CredentialToken); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, depositResponse(prev, false))
				return
			}
		}
	}

	res, err := h.depositSvc.Deposit(ctx, req.RecipientID)
	if err != nil {
		switch err {
		case services.ErrUnknownRecipient:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipient not found")
		case services.ErrDepositNotAllowed:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "deposits to this recipient are not allowed")
		case services.ErrNoLockerAvailable:
			fail(c, http.StatusConflict, ErrCodeNoLockerAvailable, "no free locker available")
		case services.ErrHardwareUnreachable:
			fail(c, http.StatusBadGateway, ErrCodeHardwareUnreachable, "locker hardware did not respond")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDepositFailed, err.Error())
		}
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.DB != nil {
		ttl := h.IdempotencyTTL
		if ttl <= 0 {
			ttl = defaultIdempotencyTTL
		}
		_, _ = repo.CreateIdempotency(ctx, h.DB, currentUser, req.RecipientID, idemKey, res.Credential.Token, status, ttl)
	}

	ok(c, status, DepositResponse{
		Token:       res.Credential.Token,
		Payload:     res.Payload,
		LockerID:    res.Credential.LockerID,
		RecipientID: res.Credential.RecipientID,
		Resumed:     res.Resumed,
	})
}

// depositResponse rebuilds the response envelope from a stored credential,
// used by the idempotent replay path where no fresh DepositResult exists.
func depositResponse(cred *domain.DropCredential, resumed bool) DepositResponse {
	return DepositResponse{
		Token:       cred.Token,
		Payload:     cred.Payload().Encode(),
		LockerID:    cred.LockerID,
		RecipientID: cred.RecipientID,
		Resumed:     resumed,
	}
}

// middlewareGetIdempotencyKey extracts an idempotency key if an upstream
// middleware has already validated/stashed it. The fallback behavior reads
// the "Idempotency-Key" header directly when no dedicated middleware exists.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}
