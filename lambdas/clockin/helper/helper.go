package helper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/utils"
)

// Record is one scan row from a device export: id,workerId,timestamp,deviceId.
type Record struct {
	ID        string
	WorkerID  string
	Timestamp time.Time
	Date      string
	DeviceID  string
}

// ClockRecord summarises one worker's scans on one day.
type ClockRecord struct {
	WorkerID string
	Date     string
	From     time.Time
	To       time.Time
	Records  []Record
}

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseClockInCSV reads a device export. Timestamps without a zone are taken
// to be in loc. The first row is a header.
func ParseClockInCSV(r io.Reader, loc *time.Location) ([]Record, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return nil, err
	}

	var records []Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: expected at least 3 columns, got %d", i, len(row))
		}

		workerID := strings.TrimSpace(row[1])
		if workerID == "" {
			return nil, fmt.Errorf("row %d: missing worker id", i)
		}

		timestamp, err := parseTimestamp(strings.TrimSpace(row[2]), loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp: %w", i, err)
		}

		record := Record{
			ID:        strings.TrimSpace(row[0]),
			WorkerID:  workerID,
			Timestamp: timestamp,
			Date:      timestamp.Format(utils.SheetDateLayout),
		}
		if len(row) > 3 {
			record.DeviceID = strings.TrimSpace(row[3])
		}

		records = append(records, record)
	}

	return records, nil
}

// GroupRecords groups by worker and day, ordered by worker then first scan.
func GroupRecords(records []Record) []ClockRecord {
	grouped := make(map[string]ClockRecord)

	for _, r := range records {
		key := r.WorkerID + "|" + r.Date
		cr, exists := grouped[key]

		if !exists {
			grouped[key] = ClockRecord{
				WorkerID: r.WorkerID,
				Date:     r.Date,
				From:     r.Timestamp,
				To:       r.Timestamp,
				Records:  []Record{r},
			}
			continue
		}

		if r.Timestamp.Before(cr.From) {
			cr.From = r.Timestamp
		}
		if r.Timestamp.After(cr.To) {
			cr.To = r.Timestamp
		}
		cr.Records = append(cr.Records, r)
		grouped[key] = cr
	}

	clockRecords := make([]ClockRecord, 0, len(grouped))
	for _, cr := range grouped {
		clockRecords = append(clockRecords, cr)
	}
	sort.Slice(clockRecords, func(i, j int) bool {
		if clockRecords[i].WorkerID != clockRecords[j].WorkerID {
			return clockRecords[i].WorkerID < clockRecords[j].WorkerID
		}
		return clockRecords[i].From.Before(clockRecords[j].From)
	})

	return clockRecords
}

type Backfiller interface {
	Backfill(ctx context.Context, workerID string, ts time.Time, deviceID string) clockin.Result
}

type Summary struct {
	Rows     int
	Accepted int
	Rejected map[clockin.Reason]int
}

// Failed counts rows that hit an infrastructure failure and can be retried.
func (s Summary) Failed() int {
	n := 0
	for reason, count := range s.Rejected {
		if reason.Infrastructure() {
			n += count
		}
	}
	return n
}

// Import admits every scan of a device export through b, oldest first within
// each worker so the cooldown sees them in order. Re-importing a file is
// harmless: scans already recorded fall inside the cooldown of themselves.
func Import(ctx context.Context, r io.Reader, loc *time.Location, b Backfiller, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := ParseClockInCSV(r, loc)
	if err != nil {
		return Summary{}, fmt.Errorf("parse device log: %w", err)
	}

	summary := Summary{Rows: len(records), Rejected: map[clockin.Reason]int{}}
	for _, group := range GroupRecords(records) {
		logger.Info("importing scans",
			slog.String("worker_id", group.WorkerID),
			slog.String("date", group.Date),
			slog.Time("from", group.From),
			slog.Time("to", group.To),
			slog.Int("scans", len(group.Records)))

		scans := group.Records
		sort.SliceStable(scans, func(i, j int) bool { return scans[i].Timestamp.Before(scans[j].Timestamp) })
		for _, rec := range scans {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			res := b.Backfill(ctx, rec.WorkerID, rec.Timestamp, rec.DeviceID)
			if res.Accepted {
				summary.Accepted++
				continue
			}
			summary.Rejected[res.Reason]++
			logger.Debug("scan not imported",
				slog.String("row_id", rec.ID),
				slog.String("worker_id", rec.WorkerID),
				slog.String("reason", string(res.Reason)))
		}
	}
	return summary, nil
}
