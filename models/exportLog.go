package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
)

// ExportLog records who exported which monthly report, and where it was archived.
type ExportLog struct {
	ID            int       `gorm:"primary_key" json:"id"`
	UserId        string    `gorm:"index;size:64" json:"user_id"`
	Role          Role      `gorm:"size:20" json:"role"`
	StateId       string    `gorm:"index;size:64;not null" json:"state_id"`
	Year          int       `gorm:"not null" json:"year"`
	Month         int       `gorm:"not null" json:"month"`
	FileName      string    `gorm:"size:255;not null" json:"file_name"`
	ArchiveUri    string    `gorm:"size:512" json:"archive_uri"`
	GrandTotal    int       `json:"grand_total"`
	CorrelationId string    `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RecordExport stores an audit row. It is a no-op without a configured database.
func RecordExport(ctx context.Context, entry *ExportLog) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}
