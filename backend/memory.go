package backend

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory backend implementing both the read and the append
// contracts. It backs tests and ephemeral files, and doubles as the target
// for "write locally, publish remotely" flows.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

var (
	_ Backend  = (*Memory)(nil)
	_ Appender = (*Memory)(nil)
)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFrom wraps an existing byte slice for reading.
func NewMemoryFrom(data []byte) *Memory {
	return &Memory{data: data}
}

// ReadRange returns a copy of the requested range.
func (m *Memory) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if size := uint64(len(m.data)); offset > size || length > size-offset {
		return nil, fmt.Errorf("read %d bytes at %d beyond end of buffer (%d bytes)", length, offset, size)
	}
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out, nil
}

// Append extends the buffer.
func (m *Memory) Append(p []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	offset := uint64(len(m.data))
	m.data = append(m.data, p...)
	return offset, nil
}

// Size returns the buffer length.
func (m *Memory) Size() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.data)), nil
}

// Bytes returns the accumulated buffer.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// Sync is a no-op.
func (m *Memory) Sync() error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
