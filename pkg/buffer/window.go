package buffer

import "sync"

// Window keeps the last N elements written to it, overwriting the oldest
// when full.
type Window[T any] struct {
	mu   sync.Mutex
	buf  []T
	next int
	full bool
}

// WindowN creates a Window holding size elements.
func WindowN[T any](size int) *Window[T] {
	if size <= 0 {
		size = 1
	}
	return &Window[T]{buf: make([]T, size)}
}

// Write appends p, keeping only the most recent Cap() elements.
func (w *Window[T]) Write(p []T) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(p)
	if n >= len(w.buf) {
		copy(w.buf, p[n-len(w.buf):])
		w.next = 0
		w.full = true
		return n, nil
	}
	for _, v := range p {
		w.buf[w.next] = v
		w.next++
		if w.next == len(w.buf) {
			w.next = 0
			w.full = true
		}
	}
	return n, nil
}

// Snapshot copies the window contents, oldest first, into a new slice.
func (w *Window[T]) Snapshot() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.full {
		out := make([]T, w.next)
		copy(out, w.buf[:w.next])
		return out
	}
	out := make([]T, len(w.buf))
	n := copy(out, w.buf[w.next:])
	copy(out[n:], w.buf[:w.next])
	return out
}

// Len returns the number of elements currently held.
func (w *Window[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// Cap returns the window size.
func (w *Window[T]) Cap() int {
	return len(w.buf)
}

// Reset empties the window.
func (w *Window[T]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.buf)
	w.next = 0
	w.full = false
}
