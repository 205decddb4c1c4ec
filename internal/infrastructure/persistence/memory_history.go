package persistence

import (
	"context"
	"sync"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
)

// InMemoryHistoryLedger keeps resolution history for the process
// lifetime. Unbounded on purpose: the ledger is an audit record, not a
// cache.
type InMemoryHistoryLedger struct {
	mu      sync.Mutex
	entries []norm.HistoryEntry
}

// NewInMemoryHistoryLedger creates an empty ledger
func NewInMemoryHistoryLedger() *InMemoryHistoryLedger {
	return &InMemoryHistoryLedger{}
}

// Append records an entry in insertion order.
func (l *InMemoryHistoryLedger) Append(_ context.Context, entry norm.HistoryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// List returns a copy of every entry in insertion order.
func (l *InMemoryHistoryLedger) List(_ context.Context) ([]norm.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]norm.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

// Ensure InMemoryHistoryLedger implements HistoryLedger
var _ norm.HistoryLedger = (*InMemoryHistoryLedger)(nil)
