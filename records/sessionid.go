package records

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

const sessionIDPrefix = "cs_"

// NewSessionID mints a compact public checkout-session id: a uuid encoded
// as base58 so it survives URLs and query strings without escaping.
func NewSessionID() string {
	id := uuid.New()
	return sessionIDPrefix + base58.Encode(id[:])
}

// ValidSessionID reports whether s looks like an id we minted.
func ValidSessionID(s string) bool {
	if !strings.HasPrefix(s, sessionIDPrefix) {
		return false
	}
	raw, err := base58.Decode(strings.TrimPrefix(s, sessionIDPrefix))
	if err != nil {
		return false
	}
	return len(raw) == 16
}
