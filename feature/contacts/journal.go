package contacts

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"klaviyo-sync/core/reconcile"
)

// SyncResult is one journal row.
type SyncResult struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	RunID     string    `gorm:"column:run_id;size:36;index"`
	Stream    string    `gorm:"column:stream;size:64"`
	RecordKey string    `gorm:"column:record_key;size:255;index"`
	ProfileID string    `gorm:"column:profile_id;size:64"`
	Action    string    `gorm:"column:action;size:16"`
	Success   bool      `gorm:"column:success"`
	DryRun    bool      `gorm:"column:dry_run"`
	Error     string    `gorm:"column:error;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name.
func (SyncResult) TableName() string {
	return "sync_results"
}

// Journal records per-record results of a run. A nil Journal records nothing.
type Journal struct {
	db    *gorm.DB
	runID string
}

// NewJournal creates a journal writing rows tagged with runID.
func NewJournal(db *gorm.DB, runID string) *Journal {
	return &Journal{db: db, runID: runID}
}

// RunID returns the run identifier.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Migrate creates or updates the journal table.
func (j *Journal) Migrate() error {
	if j == nil {
		return nil
	}
	if err := j.db.AutoMigrate(&SyncResult{}); err != nil {
		return fmt.Errorf("failed to migrate sync_results: %w", err)
	}
	return nil
}

// Record inserts one result.
func (j *Journal) Record(ctx context.Context, stream string, res reconcile.Result) error {
	if j == nil {
		return nil
	}

	row := SyncResult{
		RunID:     j.runID,
		Stream:    stream,
		RecordKey: res.RecordKey,
		ProfileID: res.ProfileID,
		Action:    string(res.Action),
		Success:   res.Success,
		DryRun:    res.DryRun,
		Error:     resultError(res),
	}
	if err := j.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to journal result for %s: %w", res.RecordKey, err)
	}
	return nil
}

// resultError flattens the record and subscription errors into one message.
func resultError(res reconcile.Result) string {
	switch {
	case res.Err != nil:
		return res.Err.Error()
	case res.SubscriptionErr != nil:
		return "subscription: " + res.SubscriptionErr.Error()
	default:
		return ""
	}
}
