// Package auth checks the shared-secret password sent in x-auth-password.
package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/alexedwards/argon2id"
)

// HeaderName carries the credential on every mutating API call.
const HeaderName = "x-auth-password"

// ErrUnauthorized is returned when the credential is missing or wrong.
var ErrUnauthorized = errors.New("unauthorized")

// Verifier compares a presented credential against the configured secret.
// An argon2id hash, when configured, takes precedence over the plain password.
type Verifier struct {
	plain string
	hash  string
}

// NewVerifier builds a Verifier. At least one of plain or hash should be set;
// with neither, every check fails.
func NewVerifier(plain, hash string) *Verifier {
	return &Verifier{plain: plain, hash: hash}
}

// Check returns nil when password matches.
func (v *Verifier) Check(password string) error {
	if password == "" {
		return ErrUnauthorized
	}
	if v.hash != "" {
		ok, err := argon2id.ComparePasswordAndHash(password, v.hash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnauthorized
		}
		return nil
	}
	if v.plain == "" || subtle.ConstantTimeCompare([]byte(password), []byte(v.plain)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// HashPassword produces an argon2id hash suitable for auth.password_hash.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}
