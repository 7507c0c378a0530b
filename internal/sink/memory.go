package sink

import (
	"context"
	"sync"

	"github.com/agenttrace/instrument/internal/domain"
)

// Memory keeps every accepted record in order. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []*domain.CallRecord
	notify  chan struct{}
}

// NewMemory creates an empty in-memory sink
func NewMemory() *Memory {
	return &Memory{notify: make(chan struct{}, 1)}
}

// Accept stores rec
func (m *Memory) Accept(_ context.Context, rec *domain.CallRecord) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// AcceptBatch stores records
func (m *Memory) AcceptBatch(ctx context.Context, records []*domain.CallRecord) error {
	for _, rec := range records {
		_ = m.Accept(ctx, rec)
	}
	return nil
}

// Records returns a snapshot of the stored records
func (m *Memory) Records() []*domain.CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CallRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of stored records
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Find returns the first record with the given ID
func (m *Memory) Find(id string) (*domain.CallRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

// WaitFor blocks until at least n records are stored or ctx ends
func (m *Memory) WaitFor(ctx context.Context, n int) bool {
	for {
		if m.Len() >= n {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-m.notify:
		}
	}
}

// Reset drops all stored records
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// Name implements Named
func (m *Memory) Name() string { return "memory" }
