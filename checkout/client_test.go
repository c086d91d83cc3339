package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckUserPaymentWire(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/check-user-payment" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		// Extra fields in the response must be ignored.
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"hasPaid":true,"plan":"one-off","debug":42}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	paid, err := c.CheckUserPayment(context.Background(), "a@b.com", "complication-risk")
	if err != nil {
		t.Fatal(err)
	}
	if !paid {
		t.Fatal("expected hasPaid=true")
	}
	if gotBody["email"] != "a@b.com" || gotBody["requiredProduct"] != "complication-risk" {
		t.Fatalf("wrong request body: %v", gotBody)
	}
	if len(gotBody) != 2 {
		t.Fatalf("request body must carry exactly email and requiredProduct, got %v", gotBody)
	}
}

func TestCheckRecentPaymentWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/check-recent-payment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		if body["requiredProduct"] != "complication-risk" || len(body) != 1 {
			t.Errorf("recent check must be scoped by product only, got %v", body)
		}
		io.WriteString(w, `{"hasPaid":false}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	paid, err := c.CheckRecentPayment(context.Background(), "complication-risk")
	if err != nil {
		t.Fatal(err)
	}
	if paid {
		t.Fatal("expected hasPaid=false")
	}
}

func TestClientFailureModes(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()
		c := NewClient(Config{BaseURL: srv.URL})
		if _, err := c.CheckUserPayment(context.Background(), "a@b.com", "p"); !errors.Is(err, ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"hasPaid":`)
		}))
		defer srv.Close()
		c := NewClient(Config{BaseURL: srv.URL})
		if _, err := c.CheckRecentPayment(context.Background(), "p"); !errors.Is(err, ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer srv.Close()
		c := NewClient(Config{BaseURL: srv.URL, Timeout: 30 * time.Millisecond})
		if _, err := c.CheckUserPayment(context.Background(), "a@b.com", "p"); err == nil {
			t.Fatal("expected timeout error")
		}
	})

	t.Run("unconfigured", func(t *testing.T) {
		c := NewClient(Config{})
		if _, err := c.CheckUserPayment(context.Background(), "a@b.com", "p"); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("expected ErrNotConfigured, got %v", err)
		}
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"sessionId":"cs_9fKq3"}`)
		}))
		defer srv.Close()
		c := NewClient(Config{BaseURL: srv.URL})
		id, err := c.CreateCheckoutSession(context.Background(), SessionRequest{
			Email:           "a@b.com",
			RequiredProduct: "surgery-readiness",
		})
		if err != nil {
			t.Fatal(err)
		}
		if id != "cs_9fKq3" {
			t.Fatalf("wrong session id %q", id)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"error":"product unavailable"}`)
		}))
		defer srv.Close()
		c := NewClient(Config{BaseURL: srv.URL})
		if _, err := c.CreateCheckoutSession(context.Background(), SessionRequest{RequiredProduct: "p"}); !errors.Is(err, ErrSessionRejected) {
			t.Fatalf("expected ErrSessionRejected, got %v", err)
		}
	})
}

func TestOriginForHost(t *testing.T) {
	if got := OriginForHost("localhost:3000"); got != DefaultLocalOrigin {
		t.Fatalf("localhost should use the local origin, got %s", got)
	}
	if got := OriginForHost("vitalityquiz.co.uk"); got != DefaultProductionOrigin {
		t.Fatalf("expected production origin, got %s", got)
	}
}

func TestWebhookSignature(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"sessionId":"cs_1","product":"p"}`)
	sig := SignBody(secret, body)
	if !VerifySignature(secret, body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(secret, []byte(`{"tampered":true}`), sig) {
		t.Fatal("tampered body accepted")
	}
	if VerifySignature(nil, body, sig) {
		t.Fatal("empty secret must reject")
	}
}
