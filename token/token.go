// Package token signs and verifies first-party grant tokens: the
// server-rendered flow persists an entitlement record as a tamper-evident
// cookie instead of trusting client storage. Single issuer and single
// consumer live in the same deployment, so a symmetric key suffices.
package token

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer names tokens minted by the funnel's own API.
const DefaultIssuer = "paygate"

var (
	ErrInvalid = errors.New("token: invalid grant token")
	ErrExpired = errors.New("token: grant token expired")
)

// GrantClaims is the payload of a grant token. It mirrors the entitlement
// record: who paid, for what, and when the claim ages out.
type GrantClaims struct {
	Email     string
	Product   string
	GrantedAt time.Time
	ExpiresAt time.Time
}

// Signer mints and verifies HS256 grant tokens.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a Signer. ttl <= 0 defaults to one hour, matching the
// grant cache TTL.
func NewSigner(secret []byte, ttl time.Duration) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("token: secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: secret, issuer: DefaultIssuer, ttl: ttl, now: time.Now}, nil
}

// TTL returns the configured token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign mints a grant token for email and product, stamped now.
func (s *Signer) Sign(email, product string) (string, error) {
	if product == "" {
		return "", errors.New("token: product required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"iss":     s.issuer,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
		"product": product,
	}
	if email != "" {
		claims["email"] = email
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a grant token, returning its claims.
func (s *Signer) Verify(raw string) (GrantClaims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return GrantClaims{}, ErrExpired
		}
		return GrantClaims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return GrantClaims{}, ErrInvalid
	}

	out := GrantClaims{}
	if v, ok := mc["product"].(string); ok {
		out.Product = v
	}
	if out.Product == "" {
		return GrantClaims{}, fmt.Errorf("%w: missing product", ErrInvalid)
	}
	if v, ok := mc["email"].(string); ok {
		out.Email = v
	}
	if v, ok := mc["iat"].(float64); ok {
		out.GrantedAt = time.Unix(int64(v), 0)
	}
	if v, ok := mc["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(v), 0)
	}
	return out, nil
}
