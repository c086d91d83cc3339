// Package ginutil holds the response and rate-limit helpers shared by the
// payment API handlers.
package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Rate-limit bucket names for the payment API surface.
const (
	RLCheckUserPayment      = "check_user_payment"
	RLCheckRecentPayment    = "check_recent_payment"
	RLCreateCheckoutSession = "create_checkout_session"
	RLCheckoutWebhook       = "checkout_webhook"
)

// RateLimiter is implemented by ratelimit/memory and ratelimit/redis.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// AllowNamed applies the named bucket to the caller's IP. Limiter errors
// fail open: a broken limiter must not take the payment checks down with it.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(bucket, c.ClientIP())
	if err != nil {
		return true
	}
	return ok
}

// BadRequest writes a 400 with a machine-readable error code.
func BadRequest(c *gin.Context, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": code})
}

// TooMany writes a 429.
func TooMany(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

// ServerError writes a 500 without leaking internals.
func ServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
