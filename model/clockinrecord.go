package model

import "time"

const (
	SourceLive   = "live"
	SourceImport = "import"
)

type ClockInRecord struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	WorkerID  string    `gorm:"size:64;not null;index:idx_worker_timestamp,priority:1" json:"workerId"`
	Timestamp time.Time `gorm:"not null;index:idx_worker_timestamp,priority:2" json:"timestamp"`
	Date      string    `gorm:"size:10;not null" json:"date"` // MM/dd/yyyy
	Time      string    `gorm:"size:8;not null" json:"time"`  // HH:mm:ss
	Notes     string    `json:"notes,omitempty"`
	TaskID    string    `gorm:"size:64" json:"taskId,omitempty"`
	Approved  bool      `gorm:"not null;default:false" json:"approved"`
	Source    string    `gorm:"size:16;not null;default:live" json:"source"`
	DeviceID  string    `gorm:"size:64" json:"deviceId,omitempty"`

	// written only by the downstream sync
	LastUpdated *time.Time `gorm:"index" json:"lastUpdated,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;<-:create" json:"createdAt"`
}

func (ClockInRecord) TableName() string {
	return "clockin_records"
}
