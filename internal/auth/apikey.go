package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used by HashSecret.
const DefaultHashCost = 12

// APIKeyVerifier checks the bearer secret presented on administrative routes.
//
// The secret is configured either in plaintext or as a bcrypt hash. With a
// hash, a successfully verified secret is remembered so later requests skip
// the bcrypt comparison.
type APIKeyVerifier struct {
	plain []byte
	hash  []byte

	mu       sync.RWMutex
	verified []byte
}

// NewAPIKeyVerifier builds a verifier from a plaintext secret or a bcrypt
// hash. The hash wins when both are set. At least one is required.
func NewAPIKeyVerifier(secret, secretHash string) (*APIKeyVerifier, error) {
	switch {
	case secretHash != "":
		if _, err := bcrypt.Cost([]byte(secretHash)); err != nil {
			return nil, fmt.Errorf("auth: api secret hash is not a bcrypt hash: %w", err)
		}
		return &APIKeyVerifier{hash: []byte(secretHash)}, nil
	case secret != "":
		return &APIKeyVerifier{plain: []byte(secret)}, nil
	default:
		return nil, errors.New("auth: an api secret or api secret hash is required")
	}
}

// Verify reports whether presented matches the configured secret.
func (v *APIKeyVerifier) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	p := []byte(presented)

	if v.hash == nil {
		return subtle.ConstantTimeCompare(p, v.plain) == 1
	}

	v.mu.RLock()
	cached := v.verified
	v.mu.RUnlock()
	if cached != nil && subtle.ConstantTimeCompare(p, cached) == 1 {
		return true
	}

	if err := bcrypt.CompareHashAndPassword(v.hash, p); err != nil {
		return false
	}

	v.mu.Lock()
	v.verified = p
	v.mu.Unlock()
	return true
}

// HashSecret hashes an API secret with bcrypt so it can be stored in config
// as auth.api_secret_hash.
func HashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", errors.New("auth: secret must not be empty")
	}
	if len(secret) > 72 {
		// bcrypt silently truncates past 72 bytes.
		return "", errors.New("auth: secret must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}
	return string(hashed), nil
}
