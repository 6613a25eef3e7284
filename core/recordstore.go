package core

import (
	"context"
	"fmt"
	"time"

	"carolinalumpers.com/clockin/model"
	"gorm.io/gorm"
)

// RecordStore keeps the clock-in log in clockin_records.
type RecordStore struct {
	dm *DatabaseManager
}

func NewRecordStore(dm *DatabaseManager) *RecordStore {
	return &RecordStore{dm: dm}
}

// AppendRecord inserts a single row; a failed insert leaves nothing behind.
func (s *RecordStore) AppendRecord(ctx context.Context, record *model.ClockInRecord) error {
	return s.dm.Exec(ctx, func(db *gorm.DB) error {
		if err := db.Create(record).Error; err != nil {
			return fmt.Errorf("failed to append clock-in %s: %w", record.ID, err)
		}
		return nil
	})
}

// QueryRecords returns the worker's records oldest first.
func (s *RecordStore) QueryRecords(ctx context.Context, workerID string) ([]model.ClockInRecord, error) {
	var records []model.ClockInRecord
	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("worker_id = ?", workerID).
			Order("timestamp ASC").
			Order("created_at ASC").
			Find(&records).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clock-in records: %w", err)
	}
	return records, nil
}

// ListUnsynced returns up to limit records the downstream sync has not marked.
// A limit of zero or less returns all of them.
func (s *RecordStore) ListUnsynced(ctx context.Context, limit int) ([]model.ClockInRecord, error) {
	var records []model.ClockInRecord
	err := s.dm.Exec(ctx, func(db *gorm.DB) error {
		q := db.Where("last_updated IS NULL").Order("timestamp ASC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&records).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsynced records: %w", err)
	}
	return records, nil
}

// MarkSynced writes the "last updated" marker. It is the only mutation a
// record ever sees after it is appended.
func (s *RecordStore) MarkSynced(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Model(&model.ClockInRecord{}).
			Where("id IN ?", ids).
			Update("last_updated", at).Error
	})
}
