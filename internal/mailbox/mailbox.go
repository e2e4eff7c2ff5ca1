// Package mailbox provides a single-slot, latest-wins handoff between a
// producer goroutine and a periodic consumer.
package mailbox

import "sync"

// Latest holds at most one value. A Put overwrites any value not yet taken.
// The zero value is ready to use.
type Latest[T any] struct {
	mu      sync.Mutex
	v       T
	full    bool
	dropped uint64
}

// Put stores v, replacing an unread value.
func (l *Latest[T]) Put(v T) {
	l.mu.Lock()
	if l.full {
		l.dropped++
	}
	l.v = v
	l.full = true
	l.mu.Unlock()
}

// Take returns the stored value and empties the slot.
func (l *Latest[T]) Take() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	if !l.full {
		return zero, false
	}
	v := l.v
	l.v = zero
	l.full = false
	return v, true
}

// Peek returns the stored value without consuming it.
func (l *Latest[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v, l.full
}

// Dropped counts values overwritten before anyone took them.
func (l *Latest[T]) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
