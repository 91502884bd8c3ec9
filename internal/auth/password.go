package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored digests.
const PasswordCost = 10

var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword returns a salted bcrypt digest of plaintext.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plaintext matches digest.
func VerifyPassword(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// dummyDigest is compared against when the handle does not exist so both
// login failures cost one bcrypt comparison.
var dummyDigest, _ = bcrypt.GenerateFromPassword([]byte("researchhub-unknown-user"), PasswordCost)

// BurnPasswordCheck spends the same work as VerifyPassword and always fails.
func BurnPasswordCheck(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyDigest, []byte(plaintext))
	return false
}
