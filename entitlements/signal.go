package entitlements

import (
	"net/url"
	"strings"
	"sync"
)

// The external checkout provider communicates success back to the funnel
// through the return URL only: either the fragment contains "success"
// (hosted-page default) or an explicit payment=success query parameter.
const signalParam = "payment"

// HasRedirectSignal reports whether u carries a checkout-success signal.
func HasRedirectSignal(u *url.URL) bool {
	if u == nil {
		return false
	}
	if strings.Contains(u.Fragment, "success") {
		return true
	}
	return u.Query().Get(signalParam) == "success"
}

// StripSignal returns a copy of u with the success signal removed, suitable
// for a history replacement so the signal cannot be re-derived after the
// router rewrites the fragment for in-app navigation.
func StripSignal(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	out := *u
	if strings.Contains(out.Fragment, "success") {
		out.Fragment = ""
	}
	q := out.Query()
	if q.Get(signalParam) == "success" {
		q.Del(signalParam)
		out.RawQuery = q.Encode()
	}
	return &out
}

// SignalSource turns the URL-derived redirect signal into an explicit
// one-shot flag: Consume reports the signal at most once, no matter how
// many times it is called or how the URL changes afterwards.
type SignalSource struct {
	mu       sync.Mutex
	present  bool
	consumed bool
}

// NewSignalSource reads the signal from u at construction time.
func NewSignalSource(u *url.URL) *SignalSource {
	return &SignalSource{present: HasRedirectSignal(u)}
}

// Consume returns true on the first call if the signal was present, and
// false on every later call.
func (s *SignalSource) Consume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumed {
		return false
	}
	s.consumed = true
	return s.present
}

// Peek reports whether the signal was present, without consuming it.
func (s *SignalSource) Peek() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present && !s.consumed
}
