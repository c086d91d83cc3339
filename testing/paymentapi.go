// Package testing provides utilities for testing applications that use
// paygate. It provides a mock payment API that serves the check and
// session endpoints, enabling gate and resolver tests without a real
// backend.
//
// Example usage:
//
//	api := testing.NewTestPaymentAPI()
//	defer api.Close()
//
//	api.MarkPaid("a@b.com", "complication-risk")
//	client := checkout.NewClient(checkout.Config{BaseURL: api.URL()})
package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// TestPaymentAPI is a scriptable in-process payment API.
type TestPaymentAPI struct {
	server *httptest.Server

	mu          sync.Mutex
	paid        map[string]bool // email|product
	recent      map[string]bool // product
	failing     bool
	userCalls   int
	recentCalls int
	sessionSeq  int
}

// NewTestPaymentAPI starts the mock server. Call Close when done.
func NewTestPaymentAPI() *TestPaymentAPI {
	api := &TestPaymentAPI{
		paid:   map[string]bool{},
		recent: map[string]bool{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/check-user-payment", api.handleCheckUser)
	mux.HandleFunc("/api/check-recent-payment", api.handleCheckRecent)
	mux.HandleFunc("/api/create-checkout-session", api.handleCreateSession)
	api.server = httptest.NewServer(mux)
	return api
}

// URL returns the API origin.
func (a *TestPaymentAPI) URL() string { return a.server.URL }

// Close shuts the server down.
func (a *TestPaymentAPI) Close() { a.server.Close() }

// MarkPaid scripts a completed payment for email and product.
func (a *TestPaymentAPI) MarkPaid(email, product string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paid[email+"|"+product] = true
}

// MarkRecent scripts a recent anonymous payment for product.
func (a *TestPaymentAPI) MarkRecent(product string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent[product] = true
}

// SetFailing makes every endpoint answer 502 while on, simulating an
// upstream outage.
func (a *TestPaymentAPI) SetFailing(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failing = on
}

// Calls reports how many user/recent checks have been served.
func (a *TestPaymentAPI) Calls() (user, recent int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userCalls, a.recentCalls
}

func (a *TestPaymentAPI) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		RequiredProduct string `json:"requiredProduct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.userCalls++
	failing := a.failing
	paid := a.paid[req.Email+"|"+req.RequiredProduct]
	a.mu.Unlock()
	if failing {
		http.Error(w, "upstream down", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]bool{"hasPaid": paid})
}

func (a *TestPaymentAPI) handleCheckRecent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequiredProduct string `json:"requiredProduct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.recentCalls++
	failing := a.failing
	recent := a.recent[req.RequiredProduct]
	a.mu.Unlock()
	if failing {
		http.Error(w, "upstream down", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]bool{"hasPaid": recent})
}

func (a *TestPaymentAPI) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	failing := a.failing
	a.sessionSeq++
	seq := a.sessionSeq
	a.mu.Unlock()
	if failing {
		writeJSON(w, map[string]string{"error": "provider unavailable"})
		return
	}
	writeJSON(w, map[string]string{"sessionId": fmt.Sprintf("cs_test%d", seq)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
