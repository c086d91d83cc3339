package visitor

import (
	"context"
	"testing"

	"github.com/Tehman700/paygate/entitlements"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), entitlements.Identity{Email: "a@b.com", FirstName: "Ada"})
	id, ok := IdentityFromContext(ctx)
	if !ok || id.Email != "a@b.com" || id.FirstName != "Ada" {
		t.Fatalf("identity not carried: %+v ok=%v", id, ok)
	}

	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("bare context must report no identity")
	}
}

func TestParseStored(t *testing.T) {
	id, err := ParseStored(`{"email":"a@b.com","firstName":"Ada","lastName":"L"}`)
	if err != nil || id == nil || id.Email != "a@b.com" {
		t.Fatalf("want identity, got %+v err=%v", id, err)
	}

	// Empty and whitespace payloads are anonymous, not errors.
	for _, raw := range []string{"", "   "} {
		id, err := ParseStored(raw)
		if err != nil || id != nil {
			t.Fatalf("empty payload %q: got %+v err=%v", raw, id, err)
		}
	}

	// An identity without an email cannot drive the user-scoped check.
	id, err = ParseStored(`{"firstName":"Ada"}`)
	if err != nil || id != nil {
		t.Fatalf("email-less identity should be anonymous, got %+v err=%v", id, err)
	}

	if _, err := ParseStored(`{"email":`); err == nil {
		t.Fatal("malformed JSON must error")
	}
}
