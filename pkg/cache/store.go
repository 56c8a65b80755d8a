package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	expiration time.Duration
	cleanup    time.Duration
}

// WithExpiration sets a default time to live for stored entries. The zero
// value keeps entries until they are deleted or the store is cleared.
func WithExpiration(ttl, cleanupInterval time.Duration) StoreOption {
	return func(cfg *storeConfig) {
		if ttl <= 0 {
			return
		}
		cfg.expiration = ttl
		cfg.cleanup = cleanupInterval
	}
}

// Store is a typed, concurrency safe key/value cache. Writes are idempotent
// upserts; concurrent loads for the same key collapse into a single call.
type Store[V any] struct {
	items *gocache.Cache
	group singleflight.Group
	ttl   time.Duration
}

// NewStore constructs an empty store. Entries never expire unless
// WithExpiration is supplied.
func NewStore[V any](options ...StoreOption) *Store[V] {
	cfg := storeConfig{expiration: gocache.NoExpiration}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return &Store[V]{
		items: gocache.New(cfg.expiration, cfg.cleanup),
		ttl:   gocache.DefaultExpiration,
	}
}

// Get returns the value stored under key.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	if s == nil {
		return zero, false
	}
	raw, ok := s.items.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set stores value under key, replacing any previous entry.
func (s *Store[V]) Set(key string, value V) {
	if s == nil {
		return
	}
	s.items.Set(key, value, s.ttl)
}

// Delete removes key from the store.
func (s *Store[V]) Delete(key string) {
	if s == nil {
		return
	}
	s.items.Delete(key)
}

// Clear drops every entry.
func (s *Store[V]) Clear() {
	if s == nil {
		return
	}
	s.items.Flush()
}

// Len reports the number of live entries.
func (s *Store[V]) Len() int {
	if s == nil {
		return 0
	}
	return s.items.ItemCount()
}

// GetOrLoad returns the cached value for key, calling load on a miss. Callers
// racing on the same missing key share one load. Failed loads are not
// cached.
func (s *Store[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if s == nil {
		return load()
	}
	if value, ok := s.Get(key); ok {
		return value, nil
	}
	raw, err, _ := s.group.Do(key, func() (any, error) {
		if value, ok := s.Get(key); ok {
			return value, nil
		}
		value, err := load()
		if err != nil {
			return nil, err
		}
		s.Set(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return raw.(V), nil
}
