package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret-used-only-in-tests"

func testCodec() *Codec { return NewCodec(testSecret) }

func TestSignVerify_RoundTrip(t *testing.T) {
	codec := testCodec()
	now := time.Unix(1700000000, 0)

	tok, issued, err := codec.Issue("listing-1", PurposeClaim, 14*24*time.Hour, now)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.Equal(t, 1, strings.Count(tok, "."), "wire format is exactly two segments")

	got, err := codec.Verify(tok, now)
	require.NoError(t, err)
	assert.Equal(t, issued, got)
	assert.Equal(t, "listing-1", got.SubjectID)
	assert.Equal(t, PurposeClaim, got.Purpose)
	assert.Equal(t, now.Unix(), got.IssuedAt)
	assert.Equal(t, now.Add(14*24*time.Hour).Unix(), got.ExpiresAt)
	assert.NotEmpty(t, got.TokenID)
}

func TestVerify_Expiry(t *testing.T) {
	codec := testCodec()
	issuedAt := time.Unix(1700000000, 0)

	tok, _, err := codec.Issue("listing-1", PurposeClaim, 14*24*time.Hour, issuedAt)
	require.NoError(t, err)

	t.Run("valid just before expiry", func(t *testing.T) {
		_, err := codec.Verify(tok, issuedAt.Add(14*24*time.Hour))
		assert.NoError(t, err)
	})

	t.Run("expired one day late", func(t *testing.T) {
		_, err := codec.Verify(tok, issuedAt.Add(15*24*time.Hour))
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("expiry checked even with correct signature", func(t *testing.T) {
		p := Payload{TokenID: "t", SubjectID: "listing-1", Purpose: PurposeClaim,
			IssuedAt: issuedAt.Unix(), ExpiresAt: issuedAt.Add(-time.Hour).Unix()}
		signed, err := codec.Sign(p)
		require.NoError(t, err)
		_, err = codec.Verify(signed, issuedAt)
		assert.ErrorIs(t, err, ErrExpired)
	})
}

func TestVerify_Malformed(t *testing.T) {
	codec := testCodec()
	now := time.Now()

	for name, tok := range map[string]string{
		"empty":               "",
		"no delimiter":        "abcdef",
		"three segments":      "a.b.c",
		"empty payload":       ".c2ln",
		"empty signature":     "cGF5bG9hZA.",
		"non-base64 sig": "cGF5bG9hZA.!!!!",
		"delimiter only": ".",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(tok, now)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, _, err := testCodec().Issue("listing-1", PurposeClaim, time.Hour, now)
	require.NoError(t, err)

	_, err = NewCodec("a-different-secret").Verify(tok, now)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

// TestVerify_TamperSensitivity flips every byte of a valid token and verifies
// the result is always rejected as malformed or bad-signature, never decoded.
func TestVerify_TamperSensitivity(t *testing.T) {
	codec := testCodec()
	now := time.Now()
	tok, _, err := codec.Issue("listing-1", PurposeClaim, time.Hour, now)
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		mutated := []byte(tok)
		mutated[i] ^= 0x01
		if string(mutated) == tok {
			continue
		}
		_, err := codec.Verify(string(mutated), now)
		require.Error(t, err, "byte %d: tampered token must not verify", i)
		ok := errors.Is(err, ErrMalformed) || errors.Is(err, ErrInvalidSignature)
		require.True(t, ok, "byte %d: got unexpected error kind %v", i, err)
	}
}

func TestVerifyPurpose(t *testing.T) {
	codec := testCodec()
	now := time.Now()

	optOut, _, err := codec.Issue("listing-1", PurposeOptOut, time.Hour, now)
	require.NoError(t, err)

	t.Run("matching purpose passes", func(t *testing.T) {
		p, err := codec.VerifyPurpose(optOut, PurposeOptOut, now)
		require.NoError(t, err)
		assert.Equal(t, PurposeOptOut, p.Purpose)
	})

	t.Run("opt-out token never authorizes a claim", func(t *testing.T) {
		_, err := codec.VerifyPurpose(optOut, PurposeClaim, now)
		assert.ErrorIs(t, err, ErrWrongPurpose)
	})

	t.Run("claim token never authorizes vendor access", func(t *testing.T) {
		claim, _, err := codec.Issue("listing-1", PurposeClaim, time.Hour, now)
		require.NoError(t, err)
		_, err = codec.VerifyPurpose(claim, PurposeVendorAccess, now)
		assert.ErrorIs(t, err, ErrWrongPurpose)
	})
}

func TestPurposeValid(t *testing.T) {
	assert.True(t, PurposeClaim.Valid())
	assert.True(t, PurposeOptOut.Valid())
	assert.True(t, PurposeVendorAccess.Valid())
	assert.False(t, Purpose("password_reset").Valid())
	assert.False(t, Purpose("").Valid())
}
