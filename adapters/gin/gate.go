// Package paygin adapts the payment gate to server-rendered gin routes.
//
// The middleware never trusts client-cached verdicts: admission comes from
// a grant cookie we signed ourselves or from the authoritative payment
// record, re-checked on this request.
package paygin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Tehman700/paygate/entitlements"
	"github.com/Tehman700/paygate/gate"
	"github.com/Tehman700/paygate/token"
	"github.com/Tehman700/paygate/visitor"
)

// DefaultGrantCookie is where the signed grant token lives.
const DefaultGrantCookie = "paygate_grant"

// RecordsChecker re-validates entitlement against the authoritative record.
// records.Store satisfies it.
type RecordsChecker interface {
	HasPaid(ctx context.Context, email, product string) (bool, error)
}

// GateConfig configures RequireEntitlement for one protected route group.
type GateConfig struct {
	RequiredProduct string
	// FallbackRoute defaults to gate.DefaultFallbackRoute.
	FallbackRoute string
	// Signer validates and mints grant cookies. Required.
	Signer *token.Signer
	// Records is the authoritative check for visitors without a valid
	// grant cookie.
	Records RecordsChecker
	// Aliases lists bundle grants that cover this product.
	Aliases entitlements.Aliases
	// CookieName defaults to DefaultGrantCookie.
	CookieName string
	Logger     *logrus.Entry
}

func (c *GateConfig) defaulted() GateConfig {
	out := *c
	if out.FallbackRoute == "" {
		out.FallbackRoute = gate.DefaultFallbackRoute
	}
	if out.CookieName == "" {
		out.CookieName = DefaultGrantCookie
	}
	if out.Logger == nil {
		out.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return out
}

// RequireEntitlement admits the request when the visitor holds a valid
// grant for the required product, re-issuing the grant cookie after an
// authoritative hit. Denials answer 402 with the fallback route; failed
// checks answer 502 with the error surfaced distinctly, mirroring the
// client gate's denied-vs-error split.
func RequireEntitlement(cfg GateConfig) gin.HandlerFunc {
	conf := cfg.defaulted()
	log := conf.Logger.WithField("product", conf.RequiredProduct)

	return func(g *gin.Context) {
		// Grant-cookie fast path: no record lookup.
		if conf.Signer != nil {
			if raw, err := g.Cookie(conf.CookieName); err == nil && raw != "" {
				if claims, err := conf.Signer.Verify(raw); err == nil &&
					conf.Aliases.Covers(claims.Product, conf.RequiredProduct) {
					setGrant(g, GrantView{Email: claims.Email, Product: claims.Product, Source: "cookie"})
					g.Next()
					return
				}
			}
		}

		// Authoritative check, identity permitting.
		if id, ok := visitor.IdentityFromContext(g.Request.Context()); ok && conf.Records != nil {
			paid, err := conf.Records.HasPaid(g.Request.Context(), id.Email, conf.RequiredProduct)
			if err != nil {
				log.WithError(err).Warn("authoritative payment check failed")
				g.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
					"error":         "access_error",
					"message":       err.Error(),
					"fallbackRoute": conf.FallbackRoute,
				})
				return
			}
			if paid {
				if conf.Signer != nil {
					if tok, err := conf.Signer.Sign(id.Email, conf.RequiredProduct); err == nil {
						g.SetCookie(conf.CookieName, tok, int(conf.Signer.TTL().Seconds()), "/", "", true, true)
					}
				}
				setGrant(g, GrantView{Email: id.Email, Product: conf.RequiredProduct, Source: "record"})
				g.Next()
				return
			}
		}

		g.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
			"error":           "payment_required",
			"requiredProduct": conf.RequiredProduct,
			"fallbackRoute":   conf.FallbackRoute,
		})
	}
}
