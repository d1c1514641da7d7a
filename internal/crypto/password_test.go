package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if !CheckPassword(hash, "secret") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected password mismatch")
	}
}

func TestPasswordHashingSaltsDiffer(t *testing.T) {
	first, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	second, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct digests for the same password")
	}
	if !CheckPassword(first, "secret") || !CheckPassword(second, "secret") {
		t.Fatalf("expected both digests to verify")
	}
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	for _, digest := range []string{"", "no-separator", "a.b.c", "!!!.???", "YWJj"} {
		if CheckPassword(digest, "secret") {
			t.Fatalf("malformed digest %q must not verify", digest)
		}
	}
}
