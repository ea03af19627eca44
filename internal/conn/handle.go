// Package conn provides a lazily opened, process-owned handle to a shared
// resource such as a database client.
package conn

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("handle closed")

// OpenFunc dials the underlying resource.
type OpenFunc[T any] func(ctx context.Context) (T, error)

// CloseFunc releases the underlying resource.
type CloseFunc[T any] func(T) error

// Handle opens its resource on first Acquire and hands the same value to
// every later caller. At most one open is in flight; callers arriving
// meanwhile wait for it but give up when their own context ends. A failed
// open leaves the handle unopened and the next Acquire tries again.
type Handle[T any] struct {
	mu       sync.Mutex
	open     OpenFunc[T]
	close    CloseFunc[T]
	value    T
	ready    bool
	closed   bool
	opens    int
	inflight chan struct{}
}

// NewHandle creates a handle. closeFn may be nil.
func NewHandle[T any](open OpenFunc[T], closeFn CloseFunc[T]) *Handle[T] {
	return &Handle[T]{open: open, close: closeFn}
}

// Acquire returns the open resource, opening it if needed.
func (h *Handle[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	for {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return zero, ErrClosed
		}
		if h.ready {
			v := h.value
			h.mu.Unlock()
			return v, nil
		}
		if err := ctx.Err(); err != nil {
			h.mu.Unlock()
			return zero, err
		}
		wait := h.inflight
		if wait == nil {
			break
		}
		h.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	// h.mu is held and no open is in flight.
	done := make(chan struct{})
	h.inflight = done
	h.mu.Unlock()

	v, err := h.open(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.inflight = nil
	close(done)
	if err != nil {
		return zero, err
	}
	if h.closed {
		if h.close != nil {
			_ = h.close(v)
		}
		return zero, ErrClosed
	}
	h.value = v
	h.ready = true
	h.opens++
	return v, nil
}

// Ready reports whether the resource is currently open.
func (h *Handle[T]) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Opens returns how many times the resource has been opened.
func (h *Handle[T]) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

// Close releases the resource if it was opened. Calling Close more than
// once is a no-op. An open still in flight is released when it finishes.
func (h *Handle[T]) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if !h.ready {
		return nil
	}
	h.ready = false
	v := h.value
	var zero T
	h.value = zero
	if h.close == nil {
		return nil
	}
	return h.close(v)
}
