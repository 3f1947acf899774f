package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// preHashPassword digests the raw password with SHA-256 so the bcrypt input
// has a fixed length regardless of what the user typed. The 64-char hex
// string stays well under bcrypt's 72-byte limit.
func preHashPassword(password string) string {
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}

// HashPassword returns a bcrypt hash of the pre-hashed password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(preHashPassword(password)), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a stored hash with its possible plaintext
// equivalent. Malformed stored hashes compare false rather than erroring.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(preHashPassword(password))) == nil
}
