// Package cache holds process-lifetime, load-once resources.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader produces the value of a resource
type Loader[T any] func(ctx context.Context) (T, error)

// Resource is a lazy slot filled by its first Get. Concurrent first callers
// share one load. The outcome, value or error, is kept for the life of the
// process; there is no setter and no retry.
type Resource[T any] struct {
	name    string
	load    Loader[T]
	timeout time.Duration
	group   singleflight.Group
	mu    sync.RWMutex
	done  bool
	value T
	err   error
}

type outcome[T any] struct {
	value T
	err   error
}

// NewResource creates an empty slot. A positive timeout bounds the load; zero
// leaves it unbounded.
func NewResource[T any](name string, timeout time.Duration, load Loader[T]) *Resource[T] {
	return &Resource[T]{name: name, load: load, timeout: timeout}
}

// Name returns the resource name used in logs
func (r *Resource[T]) Name() string { return r.name }

// Get returns the cached outcome, loading it on first use
func (r *Resource[T]) Get(ctx context.Context) (T, error) {
	r.mu.RLock()
	if r.done {
		defer r.mu.RUnlock()
		return r.value, r.err
	}
	r.mu.RUnlock()

	res, _, _ := r.group.Do(r.name, func() (interface{}, error) {
		r.mu.RLock()
		if r.done {
			defer r.mu.RUnlock()
			return outcome[T]{r.value, r.err}, nil
		}
		r.mu.RUnlock()

		// a cancelled request must not cache a cancellation error, so the
		// load runs on its own deadline rather than the caller's
		loadCtx := context.WithoutCancel(ctx)
		if r.timeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, r.timeout)
			defer cancel()
		}
		value, err := r.load(loadCtx)

		r.mu.Lock()
		r.value, r.err, r.done = value, err, true
		r.mu.Unlock()
		return outcome[T]{value, err}, nil
	})
	o := res.(outcome[T])
	return o.value, o.err
}

// Loaded reports whether the slot has been filled, successfully or not
func (r *Resource[T]) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.done
}
