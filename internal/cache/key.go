package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns the hex encoded SHA-256 digest of key.
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
