package gateway

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltLength is the number of characters of a generated salt.
const SaltLength = 15

const saltAlphabet = "abcdefghijklmnopqrstuvwxyz"

// argon2id parameters. Changing them invalidates every stored digest.
const (
	hashTime    = 1
	hashMemory  = 19 * 1024
	hashThreads = 1
	hashKeyLen  = 32
)

// NewSalt returns a random salt of SaltLength lowercase letters.
func NewSalt() (string, error) {
	buf := make([]byte, SaltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	for i, b := range buf {
		buf[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(buf), nil
}

// HashPassword returns the hex encoded argon2id digest of password and salt.
func HashPassword(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), hashTime, hashMemory, hashThreads, hashKeyLen)
	return hex.EncodeToString(key)
}

func checkPassword(password, salt, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(HashPassword(password, salt)), []byte(digest)) == 1
}
