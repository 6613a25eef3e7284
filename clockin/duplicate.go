package clockin

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carolinalumpers.com/clockin/model"
	"carolinalumpers.com/clockin/utils"
)

// DuplicateScanGuard rejects a scan that follows the worker's previous record
// by less than Cooldown.
//
// Only the single most recent record is consulted. The prior instant is
// rebuilt from its stored Date and Time columns; if those do not parse the
// check is skipped for this request.
type DuplicateScanGuard struct {
	Cooldown time.Duration
	Location *time.Location
	Logger   *slog.Logger
}

func (g DuplicateScanGuard) Validate(workerID string, candidate time.Time, prior []model.ClockInRecord) error {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}

	wID := strings.TrimSpace(workerID)
	var last *model.ClockInRecord
	for i := len(prior) - 1; i >= 0; i-- {
		if strings.TrimSpace(prior[i].WorkerID) == wID {
			last = &prior[i]
			break
		}
	}
	if last == nil {
		logger.Debug("no previous clock-ins", slog.String("worker_id", wID))
		return nil
	}

	lastTs, err := utils.CombineDateTime(last.Date, last.Time, loc)
	if err != nil {
		logger.Warn("invalid prior date/time, skipping duplicate check",
			slog.String("worker_id", wID),
			slog.String("record_id", last.ID),
			slog.String("error", err.Error()))
		return nil
	}

	delta := candidate.Sub(lastTs)
	logger.Debug("minutes since last scan",
		slog.String("worker_id", wID),
		slog.Float64("delta_minutes", delta.Minutes()))

	// a negative delta also lands here
	if delta < g.Cooldown {
		return g.tooSoon(last)
	}
	return nil
}

// ValidateBetween checks an out-of-order scan against the worker's nearest
// records on either side of candidate. Records whose Date and Time do not parse
// are skipped.
func (g DuplicateScanGuard) ValidateBetween(workerID string, candidate time.Time, prior []model.ClockInRecord) error {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}

	wID := strings.TrimSpace(workerID)
	var before, after *model.ClockInRecord
	var sinceBefore, untilAfter time.Duration
	for i := range prior {
		if strings.TrimSpace(prior[i].WorkerID) != wID {
			continue
		}
		ts, err := utils.CombineDateTime(prior[i].Date, prior[i].Time, loc)
		if err != nil {
			logger.Warn("invalid prior date/time, skipping record",
				slog.String("worker_id", wID),
				slog.String("record_id", prior[i].ID),
				slog.String("error", err.Error()))
			continue
		}
		if d := candidate.Sub(ts); d >= 0 {
			if before == nil || d < sinceBefore {
				before, sinceBefore = &prior[i], d
			}
		} else if after == nil || -d < untilAfter {
			after, untilAfter = &prior[i], -d
		}
	}

	if before != nil && sinceBefore < g.Cooldown {
		return g.tooSoon(before)
	}
	if after != nil && untilAfter < g.Cooldown {
		return g.tooSoon(after)
	}
	return nil
}

func (g DuplicateScanGuard) tooSoon(near *model.ClockInRecord) error {
	return reject(ReasonTooSoonSinceLastScan, fmt.Sprintf(
		"Duplicate scan detected. Last clock-in was at %s %s; please wait %d minutes between scans.",
		near.Date, near.Time, int(g.Cooldown.Minutes()),
	))
}
