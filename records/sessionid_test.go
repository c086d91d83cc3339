package records

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	id := NewSessionID()
	if !ValidSessionID(id) {
		t.Fatalf("freshly minted id %q should validate", id)
	}
	if ValidSessionID("cs_") || ValidSessionID("sess_abc") || ValidSessionID("") {
		t.Fatal("malformed ids must not validate")
	}
	if ValidSessionID("cs_0OIl") {
		t.Fatal("non-base58 payload must not validate")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}
