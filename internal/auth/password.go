package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and checks account credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches stored. needsUpgrade is true when
	// stored is a legacy plaintext credential that should be re-hashed.
	Verify(stored, password string) (ok bool, needsUpgrade bool)
}

// BcryptHasher stores credentials as bcrypt hashes.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher. A cost of 0 uses bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

var _ PasswordHasher = (*BcryptHasher)(nil)

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(stored, password string) (bool, bool) {
	if isBcryptHash(stored) {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, false
		}
		return err == nil, false
	}

	// Ledgers written by older builds hold plaintext.
	ok := subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
	return ok, ok
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
