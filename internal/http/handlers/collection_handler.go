// Collection HTTP handlers.
//
// This file exposes REST endpoints for the collection workflows:
//   - POST /collections/token      (redeem a single-use credential)
//   - POST /collections/identity   (open every locker waiting for an identity)
//
// Both endpoints accept either the raw token or the encoded payload the
// deposit handed out; the service re-resolves it through the store, so a
// tampered payload never opens anything.
//
// Legacy status convention:
// When Handlers.LockerStatusCodes is enabled and exactly one locker opened,
// the success status is 200+lockerID instead of 200. Station firmware that
// predates the JSON result body reads the locker number off the status line.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-locker-backend/internal/services"
)

//
// DTOs
//

// CollectRequest is the JSON payload for both collection endpoints.
type CollectRequest struct {
	// Credential is the raw token or the encoded payload from the QR/NFC
	// artifact handed out at deposit or enrollment time.
	Credential string `json:"credential" binding:"required" example:"3f0c9a7d2b414e6f8a1c5d9e0b7f2a64"`
}

//
// Helpers
//

// collectionStatus picks the success status for a collection result: the
// legacy 200+lockerID convention when enabled and exactly one locker opened,
// plain 200 otherwise.
func (h *Handlers) collectionStatus(res *services.CollectionResult) int {
	if h.LockerStatusCodes && len(res.Opened) == 1 && len(res.Failed) == 0 {
		return http.StatusOK + int(res.Opened[0])
	}
	return http.StatusOK
}

//
// Handlers
//

// CollectByToken godoc
// @ID          collectByToken
// @Summary     Collect a package with a single-use credential
// @Description Redeems the credential, opens its locker, and frees it. The credential is
// @Description consumed only if the door actually opened; on hardware failure it stays
// @Description live so the recipient can retry.
// @Tags        Collections
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CollectRequest  true  "Credential payload"
//
// @Success     200  {object}  services.CollectionResult "Locker opened and freed"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse    "Unknown, consumed, or tampered credential"
// @Failure     502  {object}  handlers.ErrorResponse    "Locker hardware unreachable"
// @Router      /collections/token [post]
func (h *Handlers) CollectByToken(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "credential required")
		return
	}

	res, err := h.collectSvc.CollectByToken(c.Request.Context(), req.Credential)
	if err != nil {
		switch err {
		case services.ErrInvalidCredential:
			fail(c, http.StatusNotFound, ErrCodeInvalidCredential, "credential not recognized")
		case services.ErrHardwareUnreachable:
			fail(c, http.StatusBadGateway, ErrCodeHardwareUnreachable, "locker did not open; credential is still valid")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCollectFailed, err.Error())
		}
		return
	}

	ok(c, h.collectionStatus(res), res)
}

// CollectByIdentity godoc
// @ID          collectByIdentity
// @Summary     Collect all packages with an identity credential
// @Description Opens every locker currently holding a package for the identity's owner.
// @Description Partial hardware failure is not an error: lockers that did not open are
// @Description listed in `failed` and keep their credentials for a retry.
// @Tags        Collections
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CollectRequest  true  "Identity credential payload"
//
// @Success     200  {object}  services.CollectionResult "Per-locker outcome"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse    "Unknown identity or nothing waiting"
// @Router      /collections/identity [post]
func (h *Handlers) CollectByIdentity(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "credential required")
		return
	}

	res, err := h.collectSvc.CollectByIdentity(c.Request.Context(), req.Credential)
	if err != nil {
		switch err {
		case services.ErrInvalidCredential:
			fail(c, http.StatusNotFound, ErrCodeInvalidCredential, "identity not recognized")
		case services.ErrNothingWaiting:
			fail(c, http.StatusNotFound, ErrCodeNothingWaiting, "no package is waiting for this identity")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCollectFailed, err.Error())
		}
		return
	}

	ok(c, h.collectionStatus(res), res)
}
