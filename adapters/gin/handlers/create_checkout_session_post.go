package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tehman700/paygate/adapters/ginutil"
	"github.com/Tehman700/paygate/records"
)

// HandleCreateCheckoutSessionPOST mints a hosted-checkout session. The
// response body is {"sessionId": ...} on success and {"error": ...}
// otherwise, matching what the basket component expects.
func HandleCreateCheckoutSessionPOST(store PaymentRecords, rl ginutil.RateLimiter) gin.HandlerFunc {
	type createSessionReq struct {
		Email           string `json:"email"`
		FirstName       string `json:"firstName"`
		LastName        string `json:"lastName"`
		RequiredProduct string `json:"requiredProduct"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCreateCheckoutSession) {
			ginutil.TooMany(c)
			return
		}
		var req createSessionReq
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RequiredProduct) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}

		id := records.NewSessionID()
		err := store.CreateSession(c.Request.Context(), records.Session{
			ID:              id,
			Email:           req.Email,
			RequiredProduct: req.RequiredProduct,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session_creation_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessionId": id})
	}
}
