package norm

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is an immutable snapshot of an ActReference at the
// moment of resolution.
type HistoryEntry struct {
	ID         uuid.UUID    `json:"id"`
	Reference  ActReference `json:"reference"`
	URN        string       `json:"urn"`
	ResolvedAt time.Time    `json:"resolved_at"`
}

// NewHistoryEntry snapshots a resolved reference.
func NewHistoryEntry(ref ActReference, urn string) HistoryEntry {
	return HistoryEntry{
		ID:         uuid.New(),
		Reference:  ref,
		URN:        urn,
		ResolvedAt: time.Now().UTC(),
	}
}

// HistoryLedger is the append-only record of every resolved reference.
// Appends reflect resolution completion order; repeated resolution of
// the same reference produces repeated entries.
type HistoryLedger interface {
	Append(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context) ([]HistoryEntry, error)
}
