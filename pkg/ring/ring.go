// Package ring provides a fixed-capacity sliding window with O(1) append.
package ring

// Buffer keeps the most recent Cap() values appended to it. Once full,
// each append evicts the oldest value.
type Buffer[T any] struct {
	buf   []T
	head  int
	count int
}

// New creates a buffer holding at most capacity values. capacity must be
// positive.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{buf: make([]T, capacity)}
}

// Append adds v, evicting the oldest value when full.
func (b *Buffer[T]) Append(v T) {
	b.buf[(b.head+b.count)%len(b.buf)] = v
	if b.count < len(b.buf) {
		b.count++
	} else {
		b.head = (b.head + 1) % len(b.buf)
	}
}

// Len returns the number of stored values.
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.buf) }

// Values returns the stored values oldest-first as a fresh slice.
func (b *Buffer[T]) Values() []T {
	out := make([]T, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.buf[(b.head+i)%len(b.buf)]
	}
	return out
}

// Last returns the most recent value, or the zero value and false when
// empty.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.buf[(b.head+b.count-1)%len(b.buf)], true
}

// First returns the oldest value, or the zero value and false when empty.
func (b *Buffer[T]) First() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.buf[b.head], true
}
