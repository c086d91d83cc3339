package token

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner([]byte("0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := s.Sign("a@b.com", "complication-risk")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Verify(raw)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Email != "a@b.com" || claims.Product != "complication-risk" {
		t.Fatalf("claims mangled: %+v", claims)
	}
	if !claims.ExpiresAt.After(claims.GrantedAt) {
		t.Fatal("exp must be after iat")
	}
}

func TestVerifyExpired(t *testing.T) {
	s, err := NewSigner([]byte("0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	raw, err := s.Sign("", "p")
	if err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	if _, err := s.Verify(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyRejectsTamperAndForeignKeys(t *testing.T) {
	s1, _ := NewSigner([]byte("0123456789abcdef"), time.Hour)
	s2, _ := NewSigner([]byte("fedcba9876543210"), time.Hour)
	raw, err := s1.Sign("a@b.com", "p")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s2.Verify(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("foreign key must be rejected, got %v", err)
	}
	if _, err := s1.Verify(raw + "x"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("tampered token must be rejected, got %v", err)
	}
}

func TestSignerRejectsWeakSecret(t *testing.T) {
	if _, err := NewSigner([]byte("short"), time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
