package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ProviderAccept describes how to accept signed receipts from the external
// checkout provider: webhook deliveries may carry a JWS receipt alongside
// the HMAC-signed body, letting the server double-check the payload against
// the provider's published keys.
type ProviderAccept struct {
	Issuer   string
	Audience string
	JWKSURL  string
	Skew     time.Duration
}

// ReceiptClaims are the fields extracted from a verified receipt.
type ReceiptClaims struct {
	SessionID string
	Email     string
	Product   string
	PaidAt    time.Time
}

// ReceiptVerifier validates provider receipts against issuer, audience, and
// the provider's JWKS.
type ReceiptVerifier struct {
	accept ProviderAccept
	keySet jwk.Set
}

// NewReceiptVerifier fetches the provider JWKS and builds a verifier.
func NewReceiptVerifier(ctx context.Context, accept ProviderAccept) (*ReceiptVerifier, error) {
	if accept.JWKSURL == "" {
		return nil, errors.New("checkout: missing provider jwks url")
	}
	keySet, err := jwk.Fetch(ctx, accept.JWKSURL)
	if err != nil {
		return nil, err
	}
	return NewReceiptVerifierWithKeySet(accept, keySet), nil
}

// NewReceiptVerifierWithKeySet builds a verifier over an already-fetched
// key set, e.g. in tests.
func NewReceiptVerifierWithKeySet(accept ProviderAccept, keySet jwk.Set) *ReceiptVerifier {
	return &ReceiptVerifier{accept: accept, keySet: keySet}
}

// Verify validates the receipt and extracts its claims.
func (v *ReceiptVerifier) Verify(ctx context.Context, raw string) (*ReceiptClaims, error) {
	if v == nil || v.keySet == nil {
		return nil, errors.New("checkout: missing key set")
	}
	opts := []jwt.ParseOption{
		jwt.WithKeySet(v.keySet),
		jwt.WithValidate(true),
		jwt.WithContext(ctx),
	}
	if v.accept.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.accept.Issuer))
	}
	if v.accept.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.accept.Audience))
	}
	if v.accept.Skew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.accept.Skew))
	}
	token, err := jwt.ParseString(raw, opts...)
	if err != nil {
		return nil, err
	}

	claims := &ReceiptClaims{}
	if raw, ok := token.Get("session_id"); ok {
		if s, ok := raw.(string); ok {
			claims.SessionID = s
		}
	}
	if raw, ok := token.Get("email"); ok {
		if s, ok := raw.(string); ok {
			claims.Email = s
		}
	}
	if raw, ok := token.Get("product"); ok {
		if s, ok := raw.(string); ok {
			claims.Product = s
		}
	}
	if raw, ok := token.Get("paid_at"); ok {
		switch t := raw.(type) {
		case time.Time:
			claims.PaidAt = t
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				claims.PaidAt = parsed
			}
		}
	}
	if claims.SessionID == "" || claims.Product == "" {
		return nil, errors.New("checkout: receipt missing session_id or product")
	}
	return claims, nil
}
