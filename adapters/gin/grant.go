package paygin

import (
	"github.com/gin-gonic/gin"

	"github.com/Tehman700/paygate/visitor"
)

const grantCtxKey = "paygate.grant"

// GrantView is a unified view of the admitted visitor's grant regardless of
// whether it came from the grant cookie or a fresh authoritative check.
type GrantView struct {
	Email   string `json:"email,omitempty"`
	Product string `json:"product"`
	// Source is "cookie", "record", or "none".
	Source string `json:"source"`
}

func setGrant(c *gin.Context, v GrantView) { c.Set(grantCtxKey, v) }

// CurrentGrant returns the grant that admitted this request, if any.
// Handlers behind RequireEntitlement can rely on ok being true.
func CurrentGrant(c *gin.Context) (GrantView, bool) {
	if v, ok := c.Get(grantCtxKey); ok {
		if g, ok2 := v.(GrantView); ok2 {
			return g, true
		}
	}
	return GrantView{Source: "none"}, false
}

// VisitorConfig configures VisitorMiddleware.
type VisitorConfig struct {
	// CookieName holds the session-persisted identity JSON.
	CookieName string
}

func (c *VisitorConfig) defaulted() VisitorConfig {
	if c == nil {
		return VisitorConfig{CookieName: "funnel_visitor"}
	}
	out := *c
	if out.CookieName == "" {
		out.CookieName = "funnel_visitor"
	}
	return out
}

// VisitorMiddleware decodes the stored visitor identity and attaches it to
// the request context. A malformed cookie degrades to anonymous; the gate
// then falls back to its no-identity path instead of breaking the page.
func VisitorMiddleware(cfg *VisitorConfig) gin.HandlerFunc {
	c := cfg.defaulted()
	return func(g *gin.Context) {
		if raw, err := g.Cookie(c.CookieName); err == nil {
			if id, err := visitor.ParseStored(raw); err == nil && id != nil {
				g.Request = g.Request.WithContext(visitor.WithIdentity(g.Request.Context(), *id))
			}
		}
		g.Next()
	}
}
