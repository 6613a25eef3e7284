package appsheet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/model"
	"carolinalumpers.com/clockin/utils"
)

// SyncStore is the part of the record store the sync writes back to.
type SyncStore interface {
	ListUnsynced(ctx context.Context, limit int) ([]model.ClockInRecord, error)
	MarkSynced(ctx context.Context, ids []string, at time.Time) error
}

// Syncer pushes clock-ins to AppSheet and stamps LastUpdated on success.
type Syncer struct {
	table  *TableEndpoint
	store  SyncStore
	now    func() time.Time
	logger *slog.Logger
}

func NewSyncer(client *Client, store SyncStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{table: client.ClockIns, store: store, now: time.Now, logger: logger}
}

// Notify adds the accepted clock-in as a new AppSheet row carrying the
// LastUpdated stamp that is then written back to the store.
func (s *Syncer) Notify(ctx context.Context, event clockin.Event) error {
	at := s.now()
	row := ClockInRow{
		ClockInID:   event.RecordID,
		WorkerID:    event.WorkerID,
		Date:        event.Date,
		Time:        event.Time,
		Approved:    utils.Ptr(false),
		DeviceID:    event.DeviceID,
		LastUpdated: stamp(at),
	}
	if _, err := s.table.Add(ctx, row); err != nil {
		return err
	}
	if err := s.store.MarkSynced(ctx, []string{event.RecordID}, at); err != nil {
		return fmt.Errorf("mark %s synced: %w", event.RecordID, err)
	}
	return nil
}

// SyncUnsynced adds every record without a LastUpdated marker in batches of
// batchSize and returns how many were marked. A missing marker means the row
// never reached AppSheet, so the full row is sent.
func (s *Syncer) SyncUnsynced(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	synced := 0
	for {
		records, err := s.store.ListUnsynced(ctx, batchSize)
		if err != nil {
			return synced, err
		}
		if len(records) == 0 {
			s.logger.Info("no rows to update", slog.Int("synced", synced))
			return synced, nil
		}

		at := s.now()
		rows := utils.Map(records, func(r model.ClockInRecord) ClockInRow {
			return recordRow(r, at)
		})
		if _, err := s.table.Add(ctx, rows...); err != nil {
			return synced, err
		}

		ids := utils.Map(records, func(r model.ClockInRecord) string { return r.ID })
		if err := s.store.MarkSynced(ctx, ids, at); err != nil {
			return synced, fmt.Errorf("mark batch synced: %w", err)
		}
		synced += len(records)
		s.logger.Info("batch update", slog.Int("rows", len(records)), slog.Int("synced", synced))

		if len(records) < batchSize {
			return synced, nil
		}
	}
}

func recordRow(r model.ClockInRecord, at time.Time) ClockInRow {
	return ClockInRow{
		ClockInID:   r.ID,
		WorkerID:    r.WorkerID,
		Date:        r.Date,
		Time:        r.Time,
		Notes:       r.Notes,
		TaskID:      r.TaskID,
		Approved:    utils.Ptr(r.Approved),
		DeviceID:    r.DeviceID,
		LastUpdated: stamp(at),
	}
}

func stamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339)
}
