package security

import "golang.org/x/crypto/bcrypt"

// DefaultCost matches the work factor the portal has always used.
const DefaultCost = 12

// Hasher wraps bcrypt with a fixed work factor. The cost is injected at
// construction so tests can run with a cheap factor.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash hashes a plaintext password with a fresh salt. Two calls with the
// same input produce different strings, so stored hashes must go through
// Verify, never ==.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plain matches hash. Malformed hashes verify as
// false rather than erroring; bcrypt's comparison is constant time.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
