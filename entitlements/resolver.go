package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cached grant stays valid. Presentation tuning
// carried over from the funnel; override via Config.TTL.
const DefaultTTL = time.Hour

// GrantCache stores grant records keyed by product id. Implementations live
// under storage/; all of them are ephemeral, client-scoped state, never an
// authorization source for server-side data access.
type GrantCache interface {
	Get(ctx context.Context, product string) (Record, bool, error)
	Put(ctx context.Context, product string, r Record) error
	Del(ctx context.Context, product string) error
}

// PaymentChecker is the authoritative remote check. checkout.Client
// implements it over the payment API.
type PaymentChecker interface {
	// CheckUserPayment reports whether the given email has paid for product.
	CheckUserPayment(ctx context.Context, email, product string) (bool, error)
	// CheckRecentPayment reports whether any recent completed checkout names
	// product, covering a freshly-paid anonymous visitor whose identity has
	// not round-tripped into session state yet.
	CheckRecentPayment(ctx context.Context, product string) (bool, error)
}

// Config configures a Resolver. Zero values take defaults.
type Config struct {
	Cache   GrantCache
	Checker PaymentChecker
	// TTL bounds cached grants; defaults to DefaultTTL.
	TTL time.Duration
	// Aliases lists the deliberate bundle-covers-component relations.
	Aliases Aliases
	Logger  *logrus.Entry
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Resolver decides, for one required product, whether the current visitor is
// entitled. Sources are consulted in strict priority order (redirect
// signal, then local cache, then remote check), short-circuiting on the first
// conclusive signal. Signal and cache checks are synchronous; a valid
// cached grant never incurs network latency.
//
// Every failure mode folds into a denial: Resolve returns a Verdict, never
// an error, and never grants on a failed check.
type Resolver struct {
	cache   GrantCache
	checker PaymentChecker
	ttl     time.Duration
	aliases Aliases
	log     *logrus.Entry
	now     func() time.Time

	// remote calls for the same product/email are deduplicated so a rapid
	// remount cannot produce overlapping requests.
	group singleflight.Group
}

// NewResolver constructs a Resolver from cfg.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		cache:   cfg.Cache,
		checker: cfg.Checker,
		ttl:     cfg.TTL,
		aliases: cfg.Aliases,
		log:     cfg.Logger,
		now:     cfg.Now,
	}
	if r.ttl <= 0 {
		r.ttl = DefaultTTL
	}
	if r.log == nil {
		r.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolve runs one resolution attempt for q. Any panic during resolution is
// converted to Denied(remote_error) so callers always receive one of the
// defined verdicts.
func (r *Resolver) Resolve(ctx context.Context, q Query) (v Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("product", q.RequiredProduct).Warnf("resolution panicked: %v", rec)
			v = DenyErr(fmt.Errorf("entitlements: resolution panicked: %v", rec))
		}
	}()

	// 1. Redirect short-circuit. The checkout provider is trusted for a
	// same-session bounce-back; re-verifying remotely here would race the
	// provider's own webhook propagation. This makes the gate a rendering
	// decision only; server handlers re-validate on every data access.
	if q.RedirectSignal {
		r.persist(ctx, q.RequiredProduct, q)
		r.log.WithField("product", q.RequiredProduct).Debug("granted via redirect signal")
		return Grant()
	}

	// 2. Local cache, the required product's own key first, then any bundle
	// that deliberately covers it. Expired records are cleared and resolution
	// falls through: the upstream entitlement may still be valid.
	now := r.now()
	if r.cache != nil {
		keys := append([]string{q.RequiredProduct}, r.aliases.BundlesFor(q.RequiredProduct)...)
		for _, key := range keys {
			rec, ok, err := r.cache.Get(ctx, key)
			if err != nil {
				r.log.WithField("product", key).WithError(err).Warn("grant cache read failed")
				continue
			}
			if !ok || !rec.Granted || !r.aliases.Covers(rec.Product, q.RequiredProduct) {
				continue
			}
			if rec.Fresh(now, r.ttl) {
				r.log.WithField("product", q.RequiredProduct).Debug("granted via cached record")
				return Grant()
			}
			if err := r.cache.Del(ctx, key); err != nil {
				r.log.WithField("product", key).WithError(err).Warn("expired grant eviction failed")
			}
		}
	}

	// 3/4. Remote check, identity-scoped when an email is known.
	email := ""
	if q.Identity != nil {
		email = q.Identity.Email
	}
	return r.remote(ctx, q, email)
}

func (r *Resolver) remote(ctx context.Context, q Query, email string) Verdict {
	if r.checker == nil {
		return DenyErr(fmt.Errorf("entitlements: no payment checker configured"))
	}

	key := q.RequiredProduct + "\x00" + email
	res, err, _ := r.group.Do(key, func() (any, error) {
		if email != "" {
			paid, err := r.checker.CheckUserPayment(ctx, email, q.RequiredProduct)
			return paid, err
		}
		paid, err := r.checker.CheckRecentPayment(ctx, q.RequiredProduct)
		return paid, err
	})
	if err != nil {
		r.log.WithField("product", q.RequiredProduct).WithError(err).Warn("remote payment check failed")
		return DenyErr(err)
	}

	if res.(bool) {
		r.persist(ctx, q.RequiredProduct, q)
		return Grant()
	}
	if email == "" {
		return Deny(ReasonNoIdentity)
	}
	return Deny(ReasonRemoteDenied)
}

// persist writes the grant record before the verdict is returned, so the
// gate controller never touches the cache directly.
func (r *Resolver) persist(ctx context.Context, product string, q Query) {
	if r.cache == nil {
		return
	}
	rec := Record{Granted: true, Product: product, GrantedAt: r.now()}
	if q.Identity != nil {
		rec.Email = q.Identity.Email
	}
	if err := r.cache.Put(ctx, product, rec); err != nil {
		r.log.WithField("product", product).WithError(err).Warn("grant cache write failed")
	}
}
