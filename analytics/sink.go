package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/wayfarelabs/orchestra/core"
)

// Batch is one grouped backlog snapshot handed to a Sink.
type Batch struct {
	// Groups keys messages by topic family (first dotted segment).
	Groups map[string][]core.EventMessage

	Timestamp time.Time
}

// Sink receives grouped batches. Implementations ship them to a warehouse,
// a file, or wherever analysis happens.
type Sink interface {
	WriteBatch(ctx context.Context, batch Batch) error
}

// MockSink records batches in memory for tests and examples.
type MockSink struct {
	mu      sync.Mutex
	batches []Batch
	err     error
}

// NewMockSink constructs an empty MockSink.
func NewMockSink() *MockSink { return &MockSink{} }

// FailWith makes every WriteBatch call return err.
func (m *MockSink) FailWith(err error) *MockSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Batches returns the batches observed so far.
func (m *MockSink) Batches() []Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Batch, len(m.batches))
	copy(out, m.batches)
	return out
}

// WriteBatch implements Sink.
func (m *MockSink) WriteBatch(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, batch)
	return nil
}

var _ Sink = (*MockSink)(nil)
