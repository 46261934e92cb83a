// Package auth issues and validates session tokens and hashes staff passwords.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 10

// Legacy credential accepted by Verifier when AllowLegacyAdmin is set.
const (
	LegacyAdminUsername = "admin"
	LegacyAdminPassword = "admin123"
)

// HashPassword returns the bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Verifier checks login credentials.
type Verifier struct {
	// AllowLegacyAdmin accepts admin/admin123 regardless of the stored hash.
	// It exists for deployments migrating from the old backend and must stay
	// off in production.
	AllowLegacyAdmin bool
}

// Verify reports whether plain is the password for username. bypass is true
// when the legacy credential was accepted, so the caller can record it.
func (v Verifier) Verify(username, plain, hash string) (ok bool, bypass bool) {
	if v.AllowLegacyAdmin &&
		subtle.ConstantTimeCompare([]byte(username), []byte(LegacyAdminUsername)) == 1 &&
		subtle.ConstantTimeCompare([]byte(plain), []byte(LegacyAdminPassword)) == 1 {
		return true, true
	}
	if hash == "" {
		return false, false
	}
	return VerifyPassword(plain, hash), false
}
