package journal

import (
	"context"
	"errors"
	"sync"
)

// DefaultMemoryLimit is the capacity of a Memory store created with limit 0.
const DefaultMemoryLimit = 1000

// Memory keeps the most recent entries in process memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

// NewMemory returns a store holding at most limit entries. Older entries are
// dropped first.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Memory{limit: limit}
}

func (m *Memory) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.limit; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
	}
	return nil
}

func (m *Memory) Recent(ctx context.Context, n int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= len(m.entries)-n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
