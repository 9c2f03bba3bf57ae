package models

import "time"

const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncRun records the outcome of one source within one sync pass.
type SyncRun struct {
	ID     uint   `gorm:"primaryKey"                            json:"id"`
	RunID  string `gorm:"type:text;not null;index:idx_sync_run" json:"run_id"`
	Source string `gorm:"type:text;not null;index:idx_sync_run" json:"source"`
	Status string `gorm:"type:text;not null"                    json:"status"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Counters
	Products   int `gorm:"default:0" json:"products"`
	Photos     int `gorm:"default:0" json:"photos"`
	Inserted   int `gorm:"default:0" json:"inserted"`
	Duplicates int `gorm:"default:0" json:"duplicates"`
	Failed     int `gorm:"default:0" json:"failed"`

	LastError string `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
