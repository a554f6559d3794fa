package journal

import (
	"context"
	"sync"
)

const DefaultCapacity = 256

// Memory is a fixed-size ring; the oldest entries are overwritten.
type Memory struct {
	mu   sync.Mutex
	buf  []Entry
	next int
	full bool
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{buf: make([]Entry, capacity)}
}

func (m *Memory) Append(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.buf[m.next] = e
		m.next = (m.next + 1) % len(m.buf)
		if m.next == 0 {
			m.full = true
		}
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = len(m.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}
