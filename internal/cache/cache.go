// Package cache provides the byte cache the http collector uses to avoid
// re-fetching a source inside its TTL window.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores fetched bytes under derived keys.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a namespaced cache key from a source descriptor.
func Key(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "watchtower:v1:" + hex.EncodeToString(hash[:])
}
