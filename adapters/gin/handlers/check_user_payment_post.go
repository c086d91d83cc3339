package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tehman700/paygate/adapters/ginutil"
)

func HandleCheckUserPaymentPOST(store PaymentRecords, rl ginutil.RateLimiter) gin.HandlerFunc {
	type checkUserReq struct {
		Email           string `json:"email"`
		RequiredProduct string `json:"requiredProduct"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckUserPayment) {
			ginutil.TooMany(c)
			return
		}
		var req checkUserReq
		if err := c.ShouldBindJSON(&req); err != nil ||
			strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.RequiredProduct) == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}

		paid, err := store.HasPaid(c.Request.Context(), req.Email, req.RequiredProduct)
		if err != nil {
			ginutil.ServerError(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"hasPaid": paid})
	}
}
