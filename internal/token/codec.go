// Package token implements the signed, time-limited token codec used to
// authenticate claim, opt-out and vendor-access links.
//
// Wire format: base64url(JSON(payload)) + "." + base64url(signature), where
// the signature is HMAC-SHA256 over the encoded payload segment. Exactly two
// segments; anything else is malformed. The signature is the only record a
// token needs - validity is provable from the token bytes, the secret and a
// clock. Rotating the secret invalidates every outstanding token; that is an
// operational consequence, not a bug.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Purpose scopes a token to exactly one action. Verification always checks
// purpose: a token minted for one action can never authorize another.
type Purpose string

const (
	PurposeClaim        Purpose = "claim"
	PurposeOptOut       Purpose = "opt_out"
	PurposeVendorAccess Purpose = "vendor_access"
)

// Valid reports whether the purpose is one of the known values.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeClaim, PurposeOptOut, PurposeVendorAccess:
		return true
	}
	return false
}

// Verification errors. Distinct kinds exist for logging and metrics; the
// user-facing experience routes them all to the same "link issue" page so the
// failure reason itself is not leaked.
var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrWrongPurpose     = errors.New("token purpose mismatch")
)

// Payload is the signed content of a token. Immutable once issued; it carries
// no authority beyond what Verify grants.
type Payload struct {
	TokenID   string            `json:"jti"`
	SubjectID string            `json:"subjectId"`
	Purpose   Purpose           `json:"purpose"`
	IssuedAt  int64             `json:"issuedAt"`
	ExpiresAt int64             `json:"expiresAt"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ExpiresTime returns the expiry as a time.Time.
func (p Payload) ExpiresTime() time.Time { return time.Unix(p.ExpiresAt, 0) }

// Codec signs and verifies tokens with a single process-wide secret.
// Stateless and safe for concurrent use.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

var encoding = base64.RawURLEncoding

// Sign serializes the payload and returns the two-segment wire form.
func (c *Codec) Sign(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	encoded := encoding.EncodeToString(raw)
	return encoded + "." + encoding.EncodeToString(c.sign(encoded)), nil
}

// Issue mints a token for a subject with the given purpose and TTL.
func (c *Codec) Issue(subjectID string, purpose Purpose, ttl time.Duration, now time.Time) (string, Payload, error) {
	p := Payload{
		TokenID:   uuid.NewString(),
		SubjectID: subjectID,
		Purpose:   purpose,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	tok, err := c.Sign(p)
	if err != nil {
		return "", Payload{}, err
	}
	return tok, p, nil
}

// Verify checks structure, signature and expiry, in that order. The payload
// is decoded only after the signature checks out, so attacker-controlled
// bytes are never parsed. Signature comparison is constant time.
func (c *Codec) Verify(tok string, now time.Time) (Payload, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Payload{}, ErrMalformed
	}

	sig, err := encoding.DecodeString(parts[1])
	if err != nil {
		return Payload{}, ErrMalformed
	}
	if !hmac.Equal(sig, c.sign(parts[0])) {
		return Payload{}, ErrInvalidSignature
	}

	raw, err := encoding.DecodeString(parts[0])
	if err != nil {
		return Payload{}, ErrMalformed
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrMalformed
	}

	if now.Unix() > p.ExpiresAt {
		return Payload{}, ErrExpired
	}
	return p, nil
}

// VerifyPurpose verifies the token and additionally enforces that it was
// minted for the expected purpose.
func (c *Codec) VerifyPurpose(tok string, expected Purpose, now time.Time) (Payload, error) {
	p, err := c.Verify(tok, now)
	if err != nil {
		return Payload{}, err
	}
	if p.Purpose != expected {
		return Payload{}, ErrWrongPurpose
	}
	return p, nil
}

func (c *Codec) sign(encodedPayload string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return mac.Sum(nil)
}
