package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the webhook body signature from the checkout
// provider.
const SignatureHeader = "X-Checkout-Signature"

// SignBody returns the hex HMAC-SHA256 of body under secret, the scheme the
// provider uses for webhook deliveries.
func SignBody(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body under secret,
// using a constant-time comparison.
func VerifySignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 || signature == "" {
		return false
	}
	expected := SignBody(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
