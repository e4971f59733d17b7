// Package cache provides pluggable byte caching for orchestrator
// responses and other fetched artifacts.
//
// The Cache interface has two implementations: FileCache for CLI usage
// (entries as files under a directory) and NullCache to disable caching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque byte payloads under string keys with optional
// expiration.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// found and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// SliceKey builds the cache key for an orchestrator slice query response.
func SliceKey(project, sliceName string) string {
	return "slice:" + project + ":" + sliceName
}
