package auth

import (
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// defaultBcryptCost balances login latency against brute-force resistance
// for the credential store. Override with TASKBOARD_BCRYPT_COST, mainly to
// lower it in CI.
const defaultBcryptCost = 12

// PasswordHasher hashes and verifies account passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a hasher using the configured cost. Values
// outside bcrypt's supported range fall back to the default.
func NewPasswordHasher() *PasswordHasher {
	cost := defaultBcryptCost
	if v := os.Getenv("TASKBOARD_BCRYPT_COST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= bcrypt.MinCost && parsed <= bcrypt.MaxCost {
			cost = parsed
		}
	}
	return &PasswordHasher{cost: cost}
}

// Hash derives a salted bcrypt hash from the plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether password matches the stored hash.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
