package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/Tehman700/paygate/entitlements"
)

func TestGrantCachePerProductKeys(t *testing.T) {
	c := NewGrantCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	rec := entitlements.Record{Granted: true, Product: "complication-risk", GrantedAt: time.Now()}
	if err := c.Put(ctx, "complication-risk", rec); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get(ctx, "complication-risk")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.Product != "complication-risk" {
		t.Fatalf("wrong record %+v", got)
	}

	// A different product id, even a textual superstring, is a miss.
	if _, ok, _ := c.Get(ctx, "complication-risk-pro"); ok {
		t.Fatal("cache must be keyed per product")
	}
}

func TestGrantCacheExpiry(t *testing.T) {
	c := NewGrantCache(20 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Put(ctx, "p", entitlements.Record{Granted: true, Product: "p", GrantedAt: time.Now()})
	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "p"); ok {
		t.Fatal("expired record must read as a miss")
	}
}

func TestGrantCacheDel(t *testing.T) {
	c := NewGrantCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Put(ctx, "p", entitlements.Record{Granted: true, Product: "p", GrantedAt: time.Now()})
	if err := c.Del(ctx, "p"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "p"); ok {
		t.Fatal("deleted record must read as a miss")
	}
}
