// Package gate wraps protected funnel content behind an entitlement check.
//
// The controller's verdict is strictly a rendering decision: both the
// redirect-signal path and the cached-grant path admit without a server
// round-trip, so any data fetch or mutation behind the gate must
// re-validate entitlement server-side on its own.
package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tehman700/paygate/entitlements"
)

var errNoResolver = errors.New("gate: no resolver configured")

// State is the controller's presentation state.
type State string

const (
	// StateLoading: resolution in flight; render a blocking spinner.
	StateLoading State = "loading"
	// StateGranted: render children plus a passive access-verified banner.
	// Terminal; no further resolution for the remainder of the mount.
	StateGranted State = "granted"
	// StateDenied: render the paywall naming the required purchase. A
	// delayed redirect to the fallback route is armed; the visitor can also
	// trigger it immediately.
	StateDenied State = "denied"
)

// Default redirect delays. The error path waits longer so the visitor can
// read the error before being bounced. Presentation tuning values.
const (
	DefaultDenyDelay  = 2 * time.Second
	DefaultErrorDelay = 3 * time.Second
	// DefaultFallbackRoute is the configured upsell destination a denied
	// visitor is sent to when no per-page route is given.
	DefaultFallbackRoute = "/upsell"
)

// Snapshot is the controller state visible to the view layer.
type Snapshot struct {
	State  State
	Reason entitlements.DenialReason // set when denied
	Err    error                     // set for remote_error denials; surface verbatim
	// RedirectAt is when the armed redirect fires, zero unless denied.
	RedirectAt time.Time
	// FallbackRoute is where the redirect goes.
	FallbackRoute string
}

// Resolver is the slice of entitlements.Resolver the controller drives.
type Resolver interface {
	Resolve(ctx context.Context, q entitlements.Query) entitlements.Verdict
}

// Navigator performs the denied-path navigation.
type Navigator interface {
	Navigate(route string)
}

// EventLogger records gate outcomes to an external sink.
// Implementations should be non-blocking and best-effort.
type EventLogger interface {
	LogVerdict(ctx context.Context, product string, v entitlements.Verdict)
}

// Config configures a Controller for one protected page.
type Config struct {
	RequiredProduct string
	// FallbackRoute defaults to DefaultFallbackRoute.
	FallbackRoute string
	DenyDelay     time.Duration
	ErrorDelay    time.Duration
	Resolver      Resolver
	Navigator     Navigator
	Events        EventLogger
	Logger        *logrus.Entry
	// OnChange observes every state transition, including the initial
	// Loading. Called on the controller's internal goroutine; keep it cheap.
	OnChange func(Snapshot)
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller is the single-shot presentation state machine for a protected
// page: Loading → {Granted, Denied}. Granted is terminal; Denied is terminal
// for this mount but recoverable by navigation. It owns the redirect timer
// and guarantees the timer cannot fire after Unmount.
type Controller struct {
	cfg Config
	log *logrus.Entry
	now func() time.Time

	mu        sync.Mutex
	snap      Snapshot
	mounted   bool
	unmounted bool
	timer     *time.Timer
	done      chan struct{}
}

// New builds a Controller; Mount starts it.
func New(cfg Config) *Controller {
	if cfg.FallbackRoute == "" {
		cfg.FallbackRoute = DefaultFallbackRoute
	}
	if cfg.DenyDelay <= 0 {
		cfg.DenyDelay = DefaultDenyDelay
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = DefaultErrorDelay
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		cfg:  cfg,
		log:  log.WithField("product", cfg.RequiredProduct),
		now:  now,
		snap: Snapshot{State: StateLoading, FallbackRoute: cfg.FallbackRoute},
		done: make(chan struct{}),
	}
}

// Mount starts resolution exactly once. identity may be nil; signal comes
// from a consumed SignalSource so it cannot be re-asserted by later router
// rewrites. Calling Mount again is a no-op.
func (c *Controller) Mount(ctx context.Context, identity *entitlements.Identity, signal bool) {
	c.mu.Lock()
	if c.mounted || c.unmounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)

	go c.resolve(ctx, identity, signal)
}

func (c *Controller) resolve(ctx context.Context, identity *entitlements.Identity, signal bool) {
	q := entitlements.Query{
		RequiredProduct: c.cfg.RequiredProduct,
		Identity:        identity,
		RedirectSignal:  signal,
	}
	var v entitlements.Verdict
	if c.cfg.Resolver != nil {
		v = c.cfg.Resolver.Resolve(ctx, q)
	} else {
		v = entitlements.DenyErr(errNoResolver)
	}

	if c.cfg.Events != nil {
		c.cfg.Events.LogVerdict(ctx, c.cfg.RequiredProduct, v)
	}

	c.mu.Lock()
	// A response arriving after Unmount is discarded before any state
	// update; Loading is simply never left on a dead mount.
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	var snap Snapshot
	if v.Granted {
		snap = Snapshot{State: StateGranted, FallbackRoute: c.cfg.FallbackRoute}
	} else {
		delay := c.cfg.DenyDelay
		if v.Reason == entitlements.ReasonRemoteError {
			delay = c.cfg.ErrorDelay
		}
		snap = Snapshot{
			State:         StateDenied,
			Reason:        v.Reason,
			Err:           v.Err,
			RedirectAt:    c.now().Add(delay),
			FallbackRoute: c.cfg.FallbackRoute,
		}
		c.timer = time.AfterFunc(delay, c.fireRedirect)
	}
	c.snap = snap
	close(c.done)
	c.mu.Unlock()

	if v.Granted {
		c.log.Debug("gate granted")
	} else {
		c.log.WithField("reason", v.Reason).Info("gate denied")
	}
	c.notify(snap)
}

func (c *Controller) fireRedirect() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	route := c.snap.FallbackRoute
	c.mu.Unlock()
	if c.cfg.Navigator != nil {
		c.cfg.Navigator.Navigate(route)
	}
}

// PurchaseNow performs the denied-path navigation immediately and disarms
// the pending timer. No-op unless the controller is in StateDenied.
func (c *Controller) PurchaseNow() {
	c.mu.Lock()
	if c.snap.State != StateDenied || c.unmounted {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	route := c.snap.FallbackRoute
	c.mu.Unlock()
	if c.cfg.Navigator != nil {
		c.cfg.Navigator.Navigate(route)
	}
}

// Unmount tears the gate down: the redirect timer is cancelled and any
// in-flight resolution result is discarded. Required, not optional cleanup.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return
	}
	c.unmounted = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// State returns the current snapshot.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Resolved is closed when the controller first leaves Loading.
func (c *Controller) Resolved() <-chan struct{} { return c.done }

func (c *Controller) notify(s Snapshot) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(s)
	}
}
