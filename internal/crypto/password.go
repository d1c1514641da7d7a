package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	keyLength  = 32
	iterations = 210_000
)

// HashPassword derives a PBKDF2-SHA256 key from the password under a
// fresh random salt and encodes both as base64(salt) + "." + base64(key).
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return base64.RawStdEncoding.EncodeToString(salt) + "." + base64.RawStdEncoding.EncodeToString(key), nil
}

// CheckPassword re-derives the key with the stored salt and compares in
// constant time. A malformed digest never matches.
func CheckPassword(digest, password string) bool {
	parts := strings.Split(digest, ".")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(key) == 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(password), salt, iterations, len(key), sha256.New)
	return subtle.ConstantTimeCompare(derived, key) == 1
}
