package persistence

import (
	"context"
	"fmt"

	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormHistoryLedger persists resolution history in SQLite so the audit
// record survives restarts. Same contract as the in-memory ledger.
type GormHistoryLedger struct {
	db *gorm.DB
}

// NewSQLiteDatabase opens (or creates) the SQLite history database and
// migrates its schema.
func NewSQLiteDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&models.HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return db, nil
}

// NewGormHistoryLedger creates a ledger backed by db
func NewGormHistoryLedger(db *gorm.DB) *GormHistoryLedger {
	return &GormHistoryLedger{db: db}
}

// Append inserts one immutable row.
func (l *GormHistoryLedger) Append(ctx context.Context, entry norm.HistoryEntry) error {
	row := models.HistoryEntry{
		ID:          entry.ID,
		URN:         entry.URN,
		ActType:     entry.Reference.Act.Type,
		ActDate:     entry.Reference.Act.Date,
		ActNumber:   entry.Reference.Act.Number,
		SourceURL:   entry.Reference.Act.SourceURL,
		Article:     entry.Reference.Article,
		Version:     entry.Reference.Version,
		VersionDate: entry.Reference.VersionDate,
		ResolvedAt:  entry.ResolvedAt,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// List returns every entry ordered by resolution time.
func (l *GormHistoryLedger) List(ctx context.Context) ([]norm.HistoryEntry, error) {
	var rows []models.HistoryEntry
	if err := l.db.WithContext(ctx).Order("resolved_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]norm.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, norm.HistoryEntry{
			ID: row.ID,
			Reference: norm.ActReference{
				Act: norm.Act{
					Type:      row.ActType,
					Date:      row.ActDate,
					Number:    row.ActNumber,
					SourceURL: row.SourceURL,
				},
				Article:     row.Article,
				Version:     row.Version,
				VersionDate: row.VersionDate,
			},
			URN:        row.URN,
			ResolvedAt: row.ResolvedAt,
		})
	}
	return entries, nil
}

// Ensure GormHistoryLedger implements HistoryLedger
var _ norm.HistoryLedger = (*GormHistoryLedger)(nil)
