// Package visitor carries the funnel visitor's identity through request
// context and decodes the session-persisted copy of it.
package visitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Tehman700/paygate/entitlements"
)

type ctxKey struct{}

// WithIdentity attaches the visitor identity to ctx.
func WithIdentity(ctx context.Context, id entitlements.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext reads the visitor identity from ctx. The second
// return is false when no identity is attached or the email is empty;
// absence is a legal state.
func IdentityFromContext(ctx context.Context) (*entitlements.Identity, bool) {
	v := ctx.Value(ctxKey{})
	id, ok := v.(entitlements.Identity)
	if !ok || strings.TrimSpace(id.Email) == "" {
		return nil, false
	}
	return &id, true
}

// ParseStored decodes the identity JSON persisted in session state.
// Malformed payloads return an error; the gate folds that into a
// remote-error denial rather than crashing the page.
func ParseStored(raw string) (*entitlements.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var id entitlements.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, fmt.Errorf("visitor: malformed stored identity: %w", err)
	}
	if strings.TrimSpace(id.Email) == "" {
		return nil, nil
	}
	return &id, nil
}
