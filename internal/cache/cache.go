// Package cache provides the TTL cache used to share short-lived values such as access tokens.
package cache

import (
	"time"

	"github.com/gofiber/storage/memory/v2"
)

// memoryGCInterval is how often the process local store drops expired entries.
const memoryGCInterval = time.Minute

// Cache stores values that expire after a time-to-live.
// Get returns nil without error on a miss or an expired entry.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Has(key string) (bool, error)
}

// NewMemory creates a process local Cache on the gofiber memory storage.
func NewMemory() *Storage {
	return NewStorage(memory.New(memory.Config{GCInterval: memoryGCInterval}), "")
}
