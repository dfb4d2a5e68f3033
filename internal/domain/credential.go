// Package domain defines the core persistence models for the application.
// This file contains the public-facing credential payload and its codec. The
// payload is the data embedded in the physical QR artifact (or written to an
// NFC tag) and reconstructed when a credential is presented at a terminal.
package domain

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// ErrBadPayload is returned when a presented payload cannot be decoded into
// a CredentialPayload.
var ErrBadPayload = errors.New("malformed credential payload")

// tokenBytes is the entropy of a generated credential token. 16 bytes gives
// 128 bits, which makes token collisions cryptographically negligible; no
// collision-retry loop is needed at issuance.
const tokenBytes = 16

// CredentialPayload is the serialized form of a credential as it travels
// outside the service: an opaque token, the recipient it is bound to, and,
// for single-use drop credentials, the locker it opens.
//
// Decoding a payload proves nothing. The token must be re-resolved through
// the credential store before any of its fields are trusted; the stored
// bindings always win over whatever the payload claims.
type CredentialPayload struct {
	Token       string `json:"token"`
	RecipientID string `json:"recipient_id"`
	LockerID    uint   `json:"locker_id,omitempty"`
}

// NewToken returns a fresh 128-bit random token, hex-encoded (32 chars).
func NewToken() string {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure means the platform RNG is broken; nothing
		// sensible can be issued in that state.
		panic("domain: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Payload builds the public payload for a drop credential.
func (c DropCredential) Payload() CredentialPayload {
	return CredentialPayload{Token: c.Token, RecipientID: c.RecipientID, LockerID: c.LockerID}
}

// Payload builds the public payload for an identity credential. LockerID is
// zero: a standing identity token is not tied to a single compartment.
func (c IdentityCredential) Payload() CredentialPayload {
	return CredentialPayload{Token: c.Token, RecipientID: c.RecipientID}
}

// Encode serializes the payload to its wire form: base64url-encoded compact
// JSON. The result is safe to embed in a QR code or URL without escaping.
func (p CredentialPayload) Encode() string {
	b, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodePayload reverses Encode. It validates shape only (a token must be
// present); it does NOT check that the token exists in the store.
func DecodePayload(s string) (CredentialPayload, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CredentialPayload{}, ErrBadPayload
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return CredentialPayload{}, ErrBadPayload
	}
	var p CredentialPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CredentialPayload{}, ErrBadPayload
	}
	if strings.TrimSpace(p.Token) == "" {
		return CredentialPayload{}, ErrBadPayload
	}
	return p, nil
}
