package buffer

import (
	"fmt"
	"io"
	"sync"
)

// Queue is a growable FIFO. Read blocks until data is written or the queue
// is closed. After CloseWrite, reads drain the remaining data and then
// return io.EOF.
type Queue[T any] struct {
	writeNotify chan struct{}

	mu         sync.Mutex
	closeWrite bool
	closeErr   error
	buf        []T
}

// QueueN creates a Queue with initial capacity n.
func QueueN[T any](n int) *Queue[T] {
	return &Queue[T]{
		writeNotify: make(chan struct{}, 1),
		buf:         make([]T, 0, n),
	}
}

// Write appends p to the queue.
func (q *Queue[T]) Write(p []T) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return 0, fmt.Errorf("buffer: write to closed queue: %w", q.closeErr)
	}
	if q.closeWrite {
		return 0, fmt.Errorf("buffer: write to closed queue: %w", io.ErrClosedPipe)
	}
	q.buf = append(q.buf, p...)
	select {
	case q.writeNotify <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Read fills p with up to len(p) elements, blocking while the queue is empty.
func (q *Queue[T]) Read(p []T) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return 0, fmt.Errorf("buffer: read from closed queue: %w", q.closeErr)
	}
	for len(q.buf) == 0 {
		if q.closeWrite {
			return 0, io.EOF
		}
		q.mu.Unlock()
		<-q.writeNotify
		q.mu.Lock()
		if q.closeErr != nil {
			return 0, fmt.Errorf("buffer: read from closed queue: %w", q.closeErr)
		}
	}
	n := copy(p, q.buf)
	q.buf = q.buf[n:]
	return n, nil
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Discard drops everything queued.
func (q *Queue[T]) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = q.buf[:0]
}

// CloseWrite stops further writes; pending data can still be read.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeWrite {
		return nil
	}
	q.closeWrite = true
	close(q.writeNotify)
	return nil
}

// CloseWithError closes both ends. Blocked readers return err.
func (q *Queue[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return nil
	}
	q.closeErr = err
	q.buf = nil
	if !q.closeWrite {
		q.closeWrite = true
		close(q.writeNotify)
	}
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (q *Queue[T]) Close() error {
	return q.CloseWithError(io.ErrClosedPipe)
}
