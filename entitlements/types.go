package entitlements

import "time"

// DenialReason classifies why a resolution did not grant access.
type DenialReason string

const (
	// ReasonNoIdentity: no email was available and the recent-payment
	// fallback did not confirm a purchase.
	ReasonNoIdentity DenialReason = "no_identity"
	// ReasonRemoteDenied: the authoritative record says the visitor has not paid.
	ReasonRemoteDenied DenialReason = "remote_denied"
	// ReasonRemoteError: the check itself failed (network, non-2xx, parse, panic).
	ReasonRemoteError DenialReason = "remote_error"
	// ReasonExpired: a cached grant aged out. Internal; resolution falls
	// through to a remote check instead of surfacing this.
	ReasonExpired DenialReason = "expired"
)

// Verdict is the outcome of one resolution attempt.
type Verdict struct {
	Granted bool
	Reason  DenialReason // set only when not granted
	Err     error        // underlying failure, set for ReasonRemoteError
}

// Grant returns a granting verdict.
func Grant() Verdict { return Verdict{Granted: true} }

// Deny returns a denying verdict with the given reason.
func Deny(reason DenialReason) Verdict { return Verdict{Reason: reason} }

// DenyErr returns a remote-error verdict carrying the underlying failure.
func DenyErr(err error) Verdict { return Verdict{Reason: ReasonRemoteError, Err: err} }

// Identity is the visitor identity available to an entitlement check.
// Absence (nil) is a legal state; only Email participates in verification.
type Identity struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Query is the input to one resolution attempt.
type Query struct {
	// RequiredProduct is the opaque product/funnel identifier the page demands.
	RequiredProduct string
	// Identity is the visitor, if known.
	Identity *Identity
	// RedirectSignal is true when the current navigation came back from a
	// successful external checkout. Callers must consume it through a
	// SignalSource so it cannot be re-read on later navigations.
	RedirectSignal bool
}

// Record is a time-limited local claim of entitlement, cached to avoid
// redundant remote checks. It authorizes access to a product only while
// Product covers the requirement and the record is younger than the TTL.
type Record struct {
	Granted   bool      `json:"granted"`
	Product   string    `json:"product"`
	GrantedAt time.Time `json:"grantedAt"`
	Email     string    `json:"email,omitempty"`
}

// Fresh reports whether the record is still within ttl at the given time.
// The boundary is strict: a record exactly ttl old is expired.
func (r Record) Fresh(now time.Time, ttl time.Duration) bool {
	return r.Granted && now.Sub(r.GrantedAt) < ttl
}
