package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tehman700/paygate/checkout"
	"github.com/Tehman700/paygate/records"
)

type fakeStore struct {
	paid     map[string]bool
	recent   map[string]bool
	sessions map[string]*records.Session
	payments []records.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		paid:     map[string]bool{},
		recent:   map[string]bool{},
		sessions: map[string]*records.Session{},
	}
}

func (f *fakeStore) HasPaid(_ context.Context, email, product string) (bool, error) {
	return f.paid[email+"|"+product], nil
}

func (f *fakeStore) HasRecentPayment(_ context.Context, product string, _ time.Duration) (bool, error) {
	return f.recent[product], nil
}

func (f *fakeStore) CreateSession(_ context.Context, sess records.Session) error {
	f.sessions[sess.ID] = &sess
	return nil
}

func (f *fakeStore) CompleteSession(_ context.Context, id string) (*records.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	sess.Completed = true
	return sess, nil
}

func (f *fakeStore) RecordPayment(_ context.Context, p records.Payment) error {
	f.payments = append(f.payments, p)
	return nil
}

func postJSON(r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCheckUserPaymentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	store.paid["a@b.com|complication-risk"] = true
	r := gin.New()
	r.POST("/api/check-user-payment", HandleCheckUserPaymentPOST(store, nil))

	w := postJSON(r, "/api/check-user-payment", `{"email":"a@b.com","requiredProduct":"complication-risk"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		HasPaid bool `json:"hasPaid"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || !out.HasPaid {
		t.Fatalf("expected hasPaid=true, body=%s err=%v", w.Body.String(), err)
	}

	w = postJSON(r, "/api/check-user-payment", `{"email":"","requiredProduct":"p"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing email must 400, got %d", w.Code)
	}
}

func TestCheckRecentPaymentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	store.recent["complication-risk"] = true
	r := gin.New()
	r.POST("/api/check-recent-payment", HandleCheckRecentPaymentPOST(store, nil, 0))

	w := postJSON(r, "/api/check-recent-payment", `{"requiredProduct":"complication-risk"}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "true") {
		t.Fatalf("expected hasPaid=true, got %d %s", w.Code, w.Body.String())
	}
}

func TestCreateCheckoutSessionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	r := gin.New()
	r.POST("/api/create-checkout-session", HandleCreateCheckoutSessionPOST(store, nil))

	w := postJSON(r, "/api/create-checkout-session", `{"email":"a@b.com","requiredProduct":"surgery-readiness"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.SessionID == "" {
		t.Fatalf("expected a session id, body=%s", w.Body.String())
	}
	if !records.ValidSessionID(out.SessionID) {
		t.Fatalf("session id %q not in minted format", out.SessionID)
	}
	if _, ok := store.sessions[out.SessionID]; !ok {
		t.Fatal("session not persisted")
	}

	w = postJSON(r, "/api/create-checkout-session", `{"email":"a@b.com"}`, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "error") {
		t.Fatalf("missing product must produce an error body, got %d %s", w.Code, w.Body.String())
	}
}

func TestCheckoutWebhookHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("whsec_test")
	store := newFakeStore()
	store.sessions["cs_abc"] = &records.Session{ID: "cs_abc", Email: "a@b.com", RequiredProduct: "complication-risk"}
	r := gin.New()
	r.POST("/api/checkout-webhook", HandleCheckoutWebhookPOST(store, WebhookConfig{Secret: secret}, nil))

	body := `{"type":"checkout.completed","sessionId":"cs_abc","product":"complication-risk"}`

	t.Run("missing signature rejected", func(t *testing.T) {
		w := postJSON(r, "/api/checkout-webhook", body, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("unsigned webhook must 401, got %d", w.Code)
		}
	})

	t.Run("signed delivery records payment", func(t *testing.T) {
		sig := checkout.SignBody(secret, []byte(body))
		w := postJSON(r, "/api/checkout-webhook", body, map[string]string{checkout.SignatureHeader: sig})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(store.payments) != 1 {
			t.Fatalf("expected one payment recorded, got %d", len(store.payments))
		}
		p := store.payments[0]
		if p.Email != "a@b.com" || p.Product != "complication-risk" || p.SessionID != "cs_abc" {
			t.Fatalf("payment fields wrong: %+v", p)
		}
		if !store.sessions["cs_abc"].Completed {
			t.Fatal("session should be marked completed")
		}
	})

	t.Run("other event types acknowledged", func(t *testing.T) {
		other := `{"type":"checkout.expired","sessionId":"cs_abc"}`
		sig := checkout.SignBody(secret, []byte(other))
		w := postJSON(r, "/api/checkout-webhook", other, map[string]string{checkout.SignatureHeader: sig})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 ack, got %d", w.Code)
		}
		if len(store.payments) != 1 {
			t.Fatal("non-completed events must not record payments")
		}
	})
}
