// Package vendorsession exchanges vendor-access link tokens for HS256 session
// JWTs and validates those JWTs on authenticated endpoints. The link token
// proves the vendor clicked their emailed link; the JWT is what the browser
// carries afterwards. Links stay exchangeable until they expire, so losing
// the first session only costs another click. Consumption tracking applies to
// claim tokens, not these.
package vendorsession

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"claimgate/internal/token"
	id "claimgate/pkg/domain"
	dErrors "claimgate/pkg/domain-errors"
	"claimgate/pkg/requestcontext"
)

// Claims are the session JWT claims issued after a vendor-access exchange.
type Claims struct {
	VendorID string `json:"vendor_id"`
	jwt.RegisteredClaims
}

// Service mints and validates vendor session JWTs.
type Service struct {
	codec      *token.Codec
	signingKey []byte
	issuer     string
	audience   string
	sessionTTL time.Duration
}

func New(codec *token.Codec, signingKey, issuer, audience string, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{
		codec:      codec,
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		sessionTTL: sessionTTL,
	}
}

// Exchange verifies a vendor-access link token and mints a session JWT for
// the vendor it names. All link-token failures collapse to unauthorized.
func (s *Service) Exchange(ctx context.Context, rawToken string) (string, id.VendorID, error) {
	payload, err := s.codec.VerifyPurpose(rawToken, token.PurposeVendorAccess, requestcontext.Now(ctx))
	if err != nil {
		return "", id.VendorID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "vendor access link rejected")
	}
	vendorID, err := id.ParseVendorID(payload.SubjectID)
	if err != nil {
		return "", id.VendorID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "vendor access token subject is not a vendor id")
	}

	session, err := s.generate(vendorID, requestcontext.Now(ctx))
	if err != nil {
		return "", id.VendorID{}, dErrors.Wrap(err, dErrors.CodeInternal, "signing session token")
	}
	return session, vendorID, nil
}

func (s *Service) generate(vendorID id.VendorID, now time.Time) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		VendorID: vendorID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// Validate parses a session JWT and returns its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session claims")
	}
	return claims, nil
}

// ExtractVendorID validates the session token and parses the vendor identity.
func (s *Service) ExtractVendorID(tokenString string) (id.VendorID, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return id.VendorID{}, err
	}
	vendorID, err := id.ParseVendorID(claims.VendorID)
	if err != nil {
		return id.VendorID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session claims")
	}
	return vendorID, nil
}
