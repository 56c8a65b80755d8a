package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Lazy holds a value that is acquired on first use and kept forever.
// Concurrent callers arriving while the load is in flight wait for that same
// load instead of starting their own. A failed load is not remembered, so the
// next caller retries.
type Lazy[T any] struct {
	load  func() (T, error)
	group singleflight.Group

	mu     sync.RWMutex
	value  T
	loaded bool
}

// NewLazy wraps load in a Lazy.
func NewLazy[T any](load func() (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Get returns the loaded value, loading it when needed.
func (l *Lazy[T]) Get() (T, error) {
	l.mu.RLock()
	if l.loaded {
		value := l.value
		l.mu.RUnlock()
		return value, nil
	}
	l.mu.RUnlock()

	raw, err, _ := l.group.Do("load", func() (any, error) {
		l.mu.RLock()
		if l.loaded {
			value := l.value
			l.mu.RUnlock()
			return value, nil
		}
		l.mu.RUnlock()

		value, err := l.load()
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.value = value
		l.loaded = true
		l.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return raw.(T), nil
}

// Loaded reports whether the value has been acquired.
func (l *Lazy[T]) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}
