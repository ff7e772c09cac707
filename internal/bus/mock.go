package bus

import (
	"context"
	"sync"
)

// Mock is a thread-safe recording bus writer for tests and --mock runs.
// Every word is appended in write order so tests can assert the exact
// sequence the chip would have seen.
type Mock struct {
	mu        sync.Mutex
	words     []uint32
	failWrite bool
}

// NewMock creates an empty recording writer.
func NewMock() *Mock {
	return &Mock{}
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// WriteWord records the word, or fails if a write failure is configured.
func (m *Mock) WriteWord(ctx context.Context, word uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return BusError("mock: write failure configured")
	}
	m.words = append(m.words, word)
	return nil
}

// Words returns a copy of every word written so far, in order.
func (m *Mock) Words() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, len(m.words))
	copy(out, m.words)
	return out
}

// Reset discards the recorded words.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words = nil
}

// WriteError is returned when a bus operation fails.
type WriteError struct {
	msg string
}

func (e WriteError) Error() string { return e.msg }

// BusError creates a new bus error.
func BusError(msg string) error { return WriteError{msg: msg} }
