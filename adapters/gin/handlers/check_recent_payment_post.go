package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tehman700/paygate/adapters/ginutil"
)

// HandleCheckRecentPaymentPOST answers the product-only fallback used for
// freshly-paid anonymous visitors. window <= 0 takes DefaultRecentWindow.
func HandleCheckRecentPaymentPOST(store PaymentRecords, rl ginutil.RateLimiter, window time.Duration) gin.HandlerFunc {
	type checkRecentReq struct {
		RequiredProduct string `json:"requiredProduct"`
	}
	if window <= 0 {
		window = DefaultRecentWindow
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckRecentPayment) {
			ginutil.TooMany(c)
			return
		}
		var req checkRecentReq
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RequiredProduct) == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}

		paid, err := store.HasRecentPayment(c.Request.Context(), req.RequiredProduct, window)
		if err != nil {
			ginutil.ServerError(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"hasPaid": paid})
	}
}
