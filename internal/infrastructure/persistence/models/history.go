package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is the persistence model for a resolution history
// entry. Rows are write-once; the ledger never updates or deletes.
type HistoryEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	URN         string    `gorm:"index;not null"`
	ActType     string    `gorm:"not null"`
	ActDate     string
	ActNumber   string
	SourceURL   string
	Article     string
	Version     string `gorm:"not null"`
	VersionDate string
	ResolvedAt  time.Time `gorm:"index;not null"`
}

// TableName overrides the table name
func (HistoryEntry) TableName() string {
	return "history_entries"
}
