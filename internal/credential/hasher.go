// Package credential implements the one-way password hash and the
// credential bridge between the host identity provider and the
// directory record store.
package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// AlgorithmBcrypt is the only hash algorithm supported in-core.
const AlgorithmBcrypt = "bcrypt"

// ErrUnsupportedAlgorithm is returned when the password policy
// requests a hash algorithm the hasher does not implement. No hash
// value is ever produced for an unsupported algorithm.
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// Policy carries the hash settings supplied by the host's password
// policy configuration.
type Policy struct {
	Algorithm string
	Cost      int
}

// Hasher hashes and verifies passwords with an adaptive one-way
// scheme.
type Hasher struct{}

// Hash returns the bcrypt hash of plaintext at the given cost factor.
func (Hasher) Hash(plaintext string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashWithPolicy hashes plaintext according to the policy, failing
// closed when the policy names an algorithm other than bcrypt.
func (h Hasher) HashWithPolicy(plaintext string, policy Policy) (string, error) {
	if policy.Algorithm != AlgorithmBcrypt {
		return "", ErrUnsupportedAlgorithm
	}
	return h.Hash(plaintext, policy.Cost)
}

// Verify reports whether plaintext matches the stored hash. Malformed
// or empty inputs verify as false, never as an error.
func (Hasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
