package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// MinCost keeps the suite fast; the production cost only changes timing.
func newTestHasher() *Hasher {
	return NewHasher(bcrypt.MinCost)
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newTestHasher()

	plaintexts := []string{"secret1", "correct horse battery staple", "pässwörd-ünicode", "123456"}

	for _, p := range plaintexts {
		hash, err := h.Hash(p)

		if err != nil {
			t.Fatalf("Hash(%q) returned error: %v", p, err)
		}

		if hash == p {
			t.Fatalf("hash equals plaintext for %q", p)
		}

		if !h.Verify(p, hash) {
			t.Fatalf("Verify(%q, Hash(%q)) = false, want true", p, p)
		}
	}
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h := newTestHasher()

	hash, err := h.Hash("secret1")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if h.Verify("secret2", hash) {
		t.Fatal("Verify accepted a different plaintext")
	}

	if h.Verify("", hash) {
		t.Fatal("Verify accepted an empty plaintext")
	}
}

func TestHashIsSaltedPerCall(t *testing.T) {
	h := newTestHasher()

	first, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	second, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if first == second {
		t.Fatal("two hashes of the same input are identical; salt is not fresh per call")
	}

	// both must still verify
	if !h.Verify("secret1", first) || !h.Verify("secret1", second) {
		t.Fatal("salted hashes failed to verify")
	}
}

func TestVerifyMalformedHashReturnsFalse(t *testing.T) {
	h := newTestHasher()

	for _, malformed := range []string{"", "not-a-bcrypt-hash", "$2a$xx$garbage"} {
		if h.Verify("secret1", malformed) {
			t.Fatalf("Verify accepted malformed hash %q", malformed)
		}
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	h := NewHasher(999)

	if h.cost != DefaultCost {
		t.Fatalf("out-of-range cost not clamped: got %d want %d", h.cost, DefaultCost)
	}

	h = NewHasher(0)

	if h.cost != DefaultCost {
		t.Fatalf("zero cost not clamped: got %d want %d", h.cost, DefaultCost)
	}
}
