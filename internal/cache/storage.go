package cache

import "time"

// KV is the subset of a gofiber storage driver the cache needs.
// The memory, mysql and postgres drivers of github.com/gofiber/storage satisfy it.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
}

// Storage is a Cache over a gofiber storage driver. With a database driver every instance reuses one token.
type Storage struct {
	kv     KV
	prefix string
}

// NewStorage wraps kv. Keys are prefixed to share a table with other users.
func NewStorage(kv KV, prefix string) *Storage {
	return &Storage{kv: kv, prefix: prefix}
}

// Get implements Cache.
func (s *Storage) Get(key string) ([]byte, error) {
	v, err := s.kv.Get(s.prefix + key)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, nil
	}

	return v, nil
}

// Set implements Cache.
func (s *Storage) Set(key string, value []byte, ttl time.Duration) error {
	return s.kv.Set(s.prefix+key, value, ttl)
}

// Has implements Cache.
func (s *Storage) Has(key string) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}
