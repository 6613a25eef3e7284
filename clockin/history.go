package clockin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"carolinalumpers.com/clockin/model"
	"carolinalumpers.com/clockin/utils"
)

const DefaultHistoryDays = 7

type HistoryEntry struct {
	Time string `json:"time"`
}

// History maps a MM/dd/yyyy date key to that day's entries in time order.
type History map[string][]HistoryEntry

// Days returns the date keys oldest first.
func (h History) Days() []string {
	return utils.SortedKeys(h, func(a, b string) int {
		ta, errA := time.Parse(utils.SheetDateLayout, a)
		tb, errB := time.Parse(utils.SheetDateLayout, b)
		if errA != nil || errB != nil {
			return strings.Compare(a, b)
		}
		return ta.Compare(tb)
	})
}

type HistoryReporter struct {
	store    RecordStore
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewHistoryReporter(store RecordStore, location *time.Location, now func() time.Time, logger *slog.Logger) *HistoryReporter {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryReporter{store: store, location: location, now: now, logger: logger}
}

// History returns the worker's records from the last sinceDays days. It never
// fails: errors are logged and an empty History is returned.
func (r *HistoryReporter) History(ctx context.Context, workerID string, sinceDays int) (history History) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("history panicked", slog.String("worker_id", workerID), slog.Any("panic", p))
			history = History{}
		}
	}()

	if sinceDays <= 0 {
		sinceDays = DefaultHistoryDays
	}

	records, err := r.store.QueryRecords(ctx, workerID)
	if err != nil {
		r.logger.Error("error in worker clock-in history", slog.String("worker_id", workerID), slog.String("error", err.Error()))
		return History{}
	}

	since := r.now().AddDate(0, 0, -sinceDays)
	return GroupByDay(workerID, records, since, r.location)
}

// GroupByDay filters records to workerID and Timestamp >= since, then groups
// them by local calendar date.
func GroupByDay(workerID string, records []model.ClockInRecord, since time.Time, loc *time.Location) History {
	wID := strings.TrimSpace(workerID)
	recent := utils.Filter(records, func(rec model.ClockInRecord) bool {
		return strings.TrimSpace(rec.WorkerID) == wID && !rec.Timestamp.Before(since)
	})

	grouped := utils.GroupBy(recent, func(rec model.ClockInRecord) string {
		return dateKey(rec, loc)
	})

	history := make(History, len(grouped))
	for day, recs := range grouped {
		entries := utils.Map(recs, func(rec model.ClockInRecord) HistoryEntry {
			return HistoryEntry{Time: timeOfDay(rec, loc)}
		})
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Time < entries[j].Time
		})
		history[day] = entries
	}
	return history
}

func dateKey(rec model.ClockInRecord, loc *time.Location) string {
	if rec.Date != "" {
		if d, err := time.Parse(utils.SheetDateLayout, rec.Date); err == nil {
			return d.Format(utils.SheetDateLayout)
		}
	}
	return rec.Timestamp.In(loc).Format(utils.SheetDateLayout)
}

// timeOfDay normalises the stored Time column to HH:mm:ss, keeping legacy
// values that do not parse as they are.
func timeOfDay(rec model.ClockInRecord, loc *time.Location) string {
	if rec.Time == "" {
		return rec.Timestamp.In(loc).Format(utils.SheetTimeLayout)
	}
	h, m, s, err := utils.ParseHHMMSS(rec.Time)
	if err != nil {
		return rec.Time
	}
	return utils.FormatHHMMSS(h, m, s)
}

func (h History) String() string {
	var b strings.Builder
	for _, day := range h.Days() {
		fmt.Fprintf(&b, "%s:", day)
		for _, e := range h[day] {
			fmt.Fprintf(&b, " %s", e.Time)
		}
		b.WriteString("\n")
	}
	return b.String()
}
