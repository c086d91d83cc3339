package memorylimiter

import (
	"testing"
	"time"
)

func TestAllowNamedEnforcesBucketLimit(t *testing.T) {
	l := New(map[string]Limit{"check_user_payment": {Limit: 3, Window: time.Minute}})

	for i := 0; i < 3; i++ {
		ok, err := l.AllowNamed("check_user_payment", "1.2.3.4")
		if err != nil || !ok {
			t.Fatalf("request %d should be allowed, ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := l.AllowNamed("check_user_payment", "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("fourth request within the window should be denied")
	}

	// Another key has its own budget.
	ok, _ = l.AllowNamed("check_user_payment", "5.6.7.8")
	if !ok {
		t.Fatal("other clients must not share the bucket")
	}
}

func TestAllowNamedFallsBackToDefaultBucket(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Minute}})

	if ok, _ := l.AllowNamed("unknown_bucket", "k"); !ok {
		t.Fatal("first request should pass on the default bucket")
	}
	if ok, _ := l.AllowNamed("unknown_bucket", "k"); ok {
		t.Fatal("default bucket limit should apply to unknown buckets")
	}
}

func TestAllowNamedRequiresBucketAndKey(t *testing.T) {
	l := New(DefaultLimits())
	if _, err := l.AllowNamed("", "k"); err == nil {
		t.Fatal("empty bucket must error")
	}
	if _, err := l.AllowNamed("check_user_payment", ""); err == nil {
		t.Fatal("empty key must error")
	}
}
