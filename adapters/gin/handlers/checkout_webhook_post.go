package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Tehman700/paygate/adapters/ginutil"
	"github.com/Tehman700/paygate/checkout"
	"github.com/Tehman700/paygate/records"
)

// WebhookConfig configures the provider webhook endpoint.
type WebhookConfig struct {
	// Secret verifies the HMAC body signature. Required.
	Secret []byte
	// Receipts, when set, additionally verifies the JWS receipt carried in
	// the payload against the provider's JWKS.
	Receipts *checkout.ReceiptVerifier
	Logger   *logrus.Entry
}

// HandleCheckoutWebhookPOST ingests checkout.completed deliveries from the
// external provider: it completes the session and records the payment the
// check endpoints consult. Writes are idempotent, so provider retries are
// safe.
func HandleCheckoutWebhookPOST(store PaymentRecords, cfg WebhookConfig, rl ginutil.RateLimiter) gin.HandlerFunc {
	type webhookEvent struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
		Email     string `json:"email"`
		Product   string `json:"product"`
		PaidAt    string `json:"paidAt"`
		Receipt   string `json:"receipt,omitempty"`
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLCheckoutWebhook) {
			ginutil.TooMany(c)
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !checkout.VerifySignature(cfg.Secret, body, c.GetHeader(checkout.SignatureHeader)) {
			log.Warn("webhook signature rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
			return
		}

		var ev webhookEvent
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&ev); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if ev.Type != "checkout.completed" {
			// Other event types are acknowledged and ignored.
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		if ev.SessionID == "" || ev.Product == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}

		if cfg.Receipts != nil {
			claims, err := cfg.Receipts.Verify(c.Request.Context(), ev.Receipt)
			if err != nil {
				log.WithError(err).Warn("webhook receipt rejected")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_receipt"})
				return
			}
			// The signed receipt wins over the loose payload fields.
			ev.SessionID = claims.SessionID
			ev.Product = claims.Product
			if claims.Email != "" {
				ev.Email = claims.Email
			}
		}

		paidAt := time.Now()
		if ev.PaidAt != "" {
			if t, err := time.Parse(time.RFC3339, ev.PaidAt); err == nil {
				paidAt = t
			}
		}

		if sess, err := store.CompleteSession(c.Request.Context(), ev.SessionID); err == nil && sess != nil && ev.Email == "" {
			ev.Email = sess.Email
		}
		err = store.RecordPayment(c.Request.Context(), records.Payment{
			Email:     ev.Email,
			Product:   ev.Product,
			SessionID: ev.SessionID,
			PaidAt:    paidAt,
		})
		if err != nil {
			log.WithError(err).Error("payment record write failed")
			ginutil.ServerError(c)
			return
		}

		log.WithFields(logrus.Fields{"session": ev.SessionID, "product": ev.Product}).Info("payment recorded")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
