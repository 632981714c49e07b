package service

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier compares a stored URL password against the one supplied
// on resolution. The comparison strategy is pluggable so a hashed scheme can
// replace plaintext storage without touching the resolver's control flow.
type PasswordVerifier interface {
	Verify(stored, supplied string) bool
}

// PlaintextVerifier matches the stored password byte for byte. This mirrors
// how records are written today; see BcryptVerifier for the hashed scheme.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Verify(stored, supplied string) bool {
	return stored == supplied
}

// BcryptVerifier treats the stored value as a bcrypt hash.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}
