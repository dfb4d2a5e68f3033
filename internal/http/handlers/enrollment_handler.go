// Enrollment HTTP handlers.
//
// This file exposes REST endpoints for onboarding:
//   - POST /recipients   (register a recipient addressable by deposits)
//   - POST /identities   (issue a standing identity credential, e.g. NFC tag)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-locker-backend/internal/services"
)

//
// DTOs
//

// CreateRecipientRequest is the JSON payload for registering a recipient.
type CreateRecipientRequest struct {
	// Name is the recipient's display name.
	Name string `json:"name" binding:"required,min=1,max=255" example:"Ada Lovelace"`
	// Email is the address deposit notifications go to. Unique per recipient.
	Email string `json:"email" binding:"required,email" example:"ada@example.org"`
}

// EnrollIdentityRequest is the JSON payload for enrolling an identity
// credential.
type EnrollIdentityRequest struct {
	// RecipientID identifies the credential's owner (UUID).
	RecipientID string `json:"recipient_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Serial optionally stores a pre-existing physical identifier (e.g. an
	// NFC tag UID). Empty generates a fresh token.
	Serial string `json:"serial,omitempty" example:"04:a2:3b:1c:7d:80"`
}

// EnrollIdentityResponse is the JSON envelope for an issued identity
// credential.
type EnrollIdentityResponse struct {
	// Token is the standing identity token to program onto the artifact.
	Token string `json:"token"`
	// Payload is the encoded credential, ready for QR rendering.
	Payload string `json:"payload"`
	// RecipientID echoes the request.
	RecipientID string `json:"recipient_id"`
}

//
// Handlers
//

// CreateRecipient godoc
// @ID          createRecipient
// @Summary     Register a recipient
// @Description Creates a recipient that deposits can address. Emails are unique.
// @Tags        Enrollment
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateRecipientRequest  true  "Recipient payload"
//
// @Success     201  {object}  domain.Recipient
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /recipients [post]
func (h *Handlers) CreateRecipient(c *gin.Context) {
	var req CreateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and a valid email required")
		return
	}

	r, err := h.enrollSvc.RegisterRecipient(c.Request.Context(), strings.TrimSpace(req.Name), req.Email)
	if err != nil {
		switch err {
		case services.ErrDuplicateRecipient:
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, r)
}

// EnrollIdentity godoc
// @ID          enrollIdentity
// @Summary     Enroll an identity credential
// @Description Issues the standing identity credential for a recipient. One per recipient.
// @Tags        Enrollment
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.EnrollIdentityRequest  true  "Enrollment payload"
//
// @Success     201  {object}  handlers.EnrollIdentityResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipient not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Recipient already enrolled"
// @Router      /identities [post]
func (h *Handlers) EnrollIdentity(c *gin.Context) {
	var req EnrollIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id required")
		return
	}
	if _, err := uuid.Parse(req.RecipientID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id must be a UUID")
		return
	}

	cred, err := h.enrollSvc.EnrollIdentity(c.Request.Context(), req.RecipientID, strings.TrimSpace(req.Serial))
	if err != nil {
		switch err {
		case services.ErrUnknownRecipient:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipient not found")
		case services.ErrAlreadyEnrolled:
			fail(c, http.StatusConflict, ErrCodeConflict, "recipient already has an identity credential")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, EnrollIdentityResponse{
		Token:       cred.Token,
		Payload:     cred.Payload().Encode(),
		RecipientID: cred.RecipientID,
	})
}
