package memory

import "sync"

// Memory is an ordered, bounded buffer. Once capacity is reached the oldest
// entry is dropped. A non-positive capacity means unbounded.
type Memory[T any] struct {
	stream   []T
	capacity int
	mu       sync.RWMutex
}

func NewMemory[T any](capacity int) *Memory[T] {
	initial := capacity
	if initial < 0 {
		initial = 0
	}
	return &Memory[T]{
		stream:   make([]T, 0, initial),
		capacity: capacity,
	}
}

// All returns a copy of the stored entries, oldest first.
func (m *Memory[T]) All() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, len(m.stream))
	copy(out, m.stream)
	return out
}

func (m *Memory[T]) Store(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stream = append(m.stream, item)
	if m.capacity > 0 && len(m.stream) > m.capacity {
		m.stream = m.stream[len(m.stream)-m.capacity:]
	}
}

// Last returns the most recent entry.
func (m *Memory[T]) Last() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero T
	if len(m.stream) == 0 {
		return zero, false
	}
	return m.stream[len(m.stream)-1], true
}

// Tail returns a copy of at most n most recent entries.
func (m *Memory[T]) Tail(n int) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.stream) {
		n = len(m.stream)
	}
	if n < 0 {
		n = 0
	}
	out := make([]T, n)
	copy(out, m.stream[len(m.stream)-n:])
	return out
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stream)
}

func (m *Memory[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stream = m.stream[:0]
}
