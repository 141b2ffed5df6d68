// Package lazy provides handles to expensive resources that are created on
// first use and shared afterwards.
package lazy

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// InitFunc builds the value behind a Handle.
type InitFunc[T any] func(ctx context.Context) (T, error)

// Handle initializes a value at most once successfully. Concurrent first
// callers share a single in-flight initialization. A failed initialization
// is not remembered, so the next Get tries again.
type Handle[T any] struct {
	init  InitFunc[T]
	value atomic.Pointer[T]
	group singleflight.Group
}

// New returns a handle that builds its value with init.
func New[T any](init InitFunc[T]) *Handle[T] {
	return &Handle[T]{init: init}
}

// Ready returns a handle that already holds v.
func Ready[T any](v T) *Handle[T] {
	h := &Handle[T]{}
	h.value.Store(&v)
	return h
}

// Get returns the initialized value, building it if needed.
func (h *Handle[T]) Get(ctx context.Context) (T, error) {
	if v := h.value.Load(); v != nil {
		return *v, nil
	}

	res, err, _ := h.group.Do("init", func() (any, error) {
		if v := h.value.Load(); v != nil {
			return *v, nil
		}
		v, err := h.init(ctx)
		if err != nil {
			return nil, err
		}
		h.value.Store(&v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Loaded reports whether the value has been initialized.
func (h *Handle[T]) Loaded() bool {
	return h.value.Load() != nil
}
