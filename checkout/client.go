// Package checkout talks to the payment API: the authoritative payment-status
// checks consumed by the entitlement resolver, and checkout-session creation
// for the external provider's hosted page.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every payment API call. A hung request must not
// leave the gate in Loading indefinitely; a timeout surfaces as an error
// and the resolver fails closed.
const DefaultTimeout = 8 * time.Second

// API origins selected by host. Local development talks to the local API
// server; everything else goes to production.
const (
	DefaultLocalOrigin      = "http://localhost:3001"
	DefaultProductionOrigin = "https://api.vitalityquiz.co.uk"
)

var (
	ErrNotConfigured = errors.New("checkout: client not configured")
	ErrUpstream      = errors.New("checkout: upstream error")
	// ErrSessionRejected: the API answered 2xx but refused to create a
	// session, returning {"error": "..."} instead of a session id.
	ErrSessionRejected = errors.New("checkout: session rejected")
)

// OriginForHost picks the API origin for the current page host.
func OriginForHost(host string) string {
	h := host
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	if h == "localhost" || h == "127.0.0.1" {
		return DefaultLocalOrigin
	}
	return DefaultProductionOrigin
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API origin, e.g. OriginForHost(window.Host).
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the transport, e.g. for tests.
	HTTPClient *http.Client
	Logger     *logrus.Entry
}

// Client is the payment API client. It implements
// entitlements.PaymentChecker.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

// NewClient constructs a Client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    hc,
		log:     log,
	}
}

// IsConfigured reports whether the client can make calls.
func (c *Client) IsConfigured() bool { return c != nil && c.baseURL != "" }

type paymentStatusResp struct {
	// Additional response fields are ignored.
	HasPaid bool `json:"hasPaid"`
}

// CheckUserPayment asks the authoritative record whether email has paid for
// requiredProduct.
func (c *Client) CheckUserPayment(ctx context.Context, email, requiredProduct string) (bool, error) {
	req := struct {
		Email           string `json:"email"`
		RequiredProduct string `json:"requiredProduct"`
	}{Email: email, RequiredProduct: requiredProduct}

	var out paymentStatusResp
	if err := c.postJSON(ctx, "/api/check-user-payment", req, &out); err != nil {
		return false, err
	}
	return out.HasPaid, nil
}

// CheckRecentPayment asks whether any recent completed checkout names
// requiredProduct, scoped by product only.
func (c *Client) CheckRecentPayment(ctx context.Context, requiredProduct string) (bool, error) {
	req := struct {
		RequiredProduct string `json:"requiredProduct"`
	}{RequiredProduct: requiredProduct}

	var out paymentStatusResp
	if err := c.postJSON(ctx, "/api/check-recent-payment", req, &out); err != nil {
		return false, err
	}
	return out.HasPaid, nil
}

// SessionRequest is the input to CreateCheckoutSession.
type SessionRequest struct {
	Email           string `json:"email"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	RequiredProduct string `json:"requiredProduct"`
}

// CreateCheckoutSession asks the API for a hosted-checkout session id. The
// resulting redirect back into the funnel is what eventually produces the
// redirect signal the resolver trusts.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
		Error     string `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/create-checkout-session", req, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrSessionRejected, out.Error)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("%w: empty session id", ErrUpstream)
	}
	return out.SessionID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrUpstream, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s status=%d", ErrUpstream, path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: invalid json from %s: %v", ErrUpstream, path, err)
	}
	return nil
}
