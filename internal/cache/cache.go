// Package cache stores fetched documents so repeated analyses of the same
// URL do not refetch it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// KeyPrefix namespaces keys by format version
const KeyPrefix = "dhatu:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a URL
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(hash[:])
}
