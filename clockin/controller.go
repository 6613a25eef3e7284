package clockin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"carolinalumpers.com/clockin/model"
	"carolinalumpers.com/clockin/utils"
	"github.com/google/uuid"
)

const (
	DefaultCooldown      = 20 * time.Minute
	DefaultSubmissionTTL = 120 * time.Second
	DefaultLockTimeout   = 20 * time.Second
	DefaultNotifyTimeout = 30 * time.Second

	globalLockKey = "clockin"
)

type Options struct {
	WorkHours     WorkHours
	Cooldown      time.Duration
	SubmissionTTL time.Duration
	LockTimeout   time.Duration
	// GlobalLock serialises every worker through one lock instead of one per worker.
	GlobalLock    bool
	HistoryDays   int
	Location      *time.Location
	NotifyTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		WorkHours:     WorkHours{Start: 7, End: 24},
		Cooldown:      DefaultCooldown,
		SubmissionTTL: DefaultSubmissionTTL,
		LockTimeout:   DefaultLockTimeout,
		HistoryDays:   DefaultHistoryDays,
		Location:      time.UTC,
		NotifyTimeout: DefaultNotifyTimeout,
	}
}

// Dependencies are the collaborators of a Controller. Workers, Store, Locker
// and Cache are required; the rest are optional.
type Dependencies struct {
	Workers  WorkerDirectory
	Store    RecordStore
	Locker   Locker
	Cache    SubmissionCache
	Notifier Notifier
	Alerter  Alerter
	Metrics  *Metrics
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

// Controller admits clock-ins: at most one accepted record per physical scan,
// under concurrent and retried requests.
type Controller struct {
	opts     Options
	workers  WorkerDirectory
	store    RecordStore
	locker   Locker
	cache    SubmissionCache
	notifier Notifier
	alerter  Alerter
	metrics  *Metrics
	history  *HistoryReporter
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	wg sync.WaitGroup
}

func NewController(opts Options, deps Dependencies) (*Controller, error) {
	if deps.Workers == nil || deps.Store == nil || deps.Locker == nil || deps.Cache == nil {
		return nil, errors.New("clockin: workers, store, locker and cache are required")
	}
	if opts.WorkHours.Start < 0 || opts.WorkHours.End > 24 || opts.WorkHours.Start >= opts.WorkHours.End {
		return nil, fmt.Errorf("clockin: invalid work hours %d-%d", opts.WorkHours.Start, opts.WorkHours.End)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.SubmissionTTL <= 0 {
		opts.SubmissionTTL = DefaultSubmissionTTL
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = NewRecordID
	}

	return &Controller{
		opts:     opts,
		workers:  deps.Workers,
		store:    deps.Store,
		locker:   deps.Locker,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		alerter:  deps.Alerter,
		metrics:  deps.Metrics,
		history:  NewHistoryReporter(deps.Store, opts.Location, now, logger),
		logger:   logger,
		now:      now,
		newID:    newID,
	}, nil
}

func NewRecordID() string {
	return "CLK-" + uuid.NewString()
}

// History exposes the reporter used for diagnostic context.
func (c *Controller) History() *HistoryReporter {
	return c.history
}

// Wait blocks until outstanding downstream notifications have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// SubmitClockIn decides whether a live clock-in request is accepted and, if so,
// records it. It always returns a Result; it never panics on collaborator failure.
func (c *Controller) SubmitClockIn(ctx context.Context, req Request) Result {
	workerID := strings.TrimSpace(req.WorkerID)
	logger := c.logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.String("worker_id", workerID),
		slog.String("source", model.SourceLive),
	)
	start := time.Now()

	worker, rej := c.resolveWorker(ctx, logger, workerID)
	if rej != nil {
		return c.rejected(ctx, logger, model.SourceLive, workerID, worker, rej)
	}

	if !c.reserveSubmission(submissionKey(workerID)) {
		return c.rejected(ctx, logger, model.SourceLive, workerID, worker,
			reject(ReasonDuplicateSubmission, "Duplicate submission detected. Please wait a moment before retrying."))
	}

	record, rej := c.admit(ctx, logger, worker, c.now, req, model.SourceLive)
	if rej != nil {
		return c.rejected(ctx, logger, model.SourceLive, workerID, worker, rej)
	}

	c.notifyAsync(logger, worker, record)
	logger.Info("clock-in success",
		slog.String("clockin_id", record.ID),
		slog.Duration("elapsed", time.Since(start)))
	return c.accepted(ctx, model.SourceLive, worker, record)
}

// Backfill admits a scan captured offline by a device, using the scan's own
// timestamp. It goes through the same lock and window check as SubmitClockIn but
// skips the submission cache, since every imported row is a distinct scan. A
// device may upload after later scans were recorded, so the cooldown is checked
// against the nearest records on both sides of ts.
func (c *Controller) Backfill(ctx context.Context, workerID string, ts time.Time, deviceID string) Result {
	workerID = strings.TrimSpace(workerID)
	logger := c.logger.With(
		slog.String("worker_id", workerID),
		slog.String("source", model.SourceImport),
		slog.String("device_id", deviceID),
	)

	worker, rej := c.resolveWorker(ctx, logger, workerID)
	if rej != nil {
		return c.rejected(ctx, logger, model.SourceImport, workerID, worker, rej)
	}

	at := func() time.Time { return ts }
	record, rej := c.admit(ctx, logger, worker, at, Request{WorkerID: workerID, DeviceID: deviceID}, model.SourceImport)
	if rej != nil {
		return c.rejected(ctx, logger, model.SourceImport, workerID, worker, rej)
	}

	c.notifyAsync(logger, worker, record)
	logger.Info("clock-in imported", slog.String("clockin_id", record.ID), slog.Time("timestamp", record.Timestamp))
	return c.accepted(ctx, model.SourceImport, worker, record)
}

func (c *Controller) resolveWorker(ctx context.Context, logger *slog.Logger, workerID string) (*model.Worker, *Rejection) {
	if workerID == "" {
		return nil, reject(ReasonMissingWorkerID, "Worker ID is missing or invalid.")
	}

	worker, err := c.workers.FindWorker(ctx, workerID)
	if errors.Is(err, ErrWorkerNotFound) || (err == nil && worker == nil) {
		return nil, reject(ReasonWorkerNotFound, fmt.Sprintf("Worker ID %q not found.", workerID))
	}
	if err != nil {
		logger.Error("worker lookup failed", slog.String("error", err.Error()))
		return nil, reject(ReasonDirectoryUnavailable, "Worker directory is unavailable. Please try again later.")
	}

	if !worker.IsActive() {
		return worker, reject(ReasonWorkerInactive, fmt.Sprintf("Worker ID %q is not active.", workerID))
	}
	if worker.DisplayName() == "" {
		return worker, reject(ReasonWorkerNameMissing, fmt.Sprintf("Worker name is missing for Worker ID %q.", workerID))
	}

	logger.Debug("worker validated", slog.String("worker", worker.DisplayName()), slog.String("status", worker.AvailabilityStatus))
	return worker, nil
}

func submissionKey(workerID string) string {
	return "clockin-" + workerID
}

// reserveSubmission reports false when a submission for key is already in flight
// or happened within the TTL. The entry is left in place whatever the outcome.
func (c *Controller) reserveSubmission(key string) bool {
	if adder, ok := c.cache.(submissionAdder); ok {
		return adder.Add(key, c.opts.SubmissionTTL)
	}
	if c.cache.Get(key) {
		return false
	}
	c.cache.Put(key, c.opts.SubmissionTTL)
	return true
}

func (c *Controller) lockKey(workerID string) string {
	if c.opts.GlobalLock {
		return globalLockKey
	}
	return "clockin-" + workerID
}

// admit runs the critical section: validation and append share one lock so no
// two requests validate against a log the other is mutating.
func (c *Controller) admit(ctx context.Context, logger *slog.Logger, worker *model.Worker, at func() time.Time, req Request, source string) (*model.ClockInRecord, *Rejection) {
	waitStart := time.Now()
	release, err := c.locker.Acquire(ctx, c.lockKey(worker.WorkerID), c.opts.LockTimeout)
	c.metrics.observeLockWait(time.Since(waitStart))
	if err != nil {
		logger.Error("admission lock not acquired", slog.String("error", err.Error()), slog.Duration("timeout", c.opts.LockTimeout))
		return nil, reject(ReasonLockTimeout, "The clock-in system is busy. Please try again in a moment.")
	}
	defer release()

	// once the lock is held the work runs to completion
	ctx = context.WithoutCancel(ctx)

	ts := at().In(c.opts.Location)
	logger.Debug("validating restrictions", slog.Time("timestamp", ts))

	if err := c.opts.WorkHours.Validate(ts); err != nil {
		return nil, asRejection(err)
	}

	prior, err := c.store.QueryRecords(ctx, worker.WorkerID)
	if err != nil {
		logger.Error("failed to read clock-in history", slog.String("error", err.Error()))
		return nil, reject(ReasonStoreUnavailable, "Clock-in records are unavailable. Please try again later.")
	}

	guard := DuplicateScanGuard{Cooldown: c.opts.Cooldown, Location: c.opts.Location, Logger: logger}
	validate := guard.Validate
	if source == model.SourceImport {
		validate = guard.ValidateBetween
	}
	if err := validate(worker.WorkerID, ts, prior); err != nil {
		return nil, asRejection(err)
	}

	record := &model.ClockInRecord{
		ID:        c.newID(),
		WorkerID:  worker.WorkerID,
		Timestamp: ts,
		Date:      ts.Format(utils.SheetDateLayout),
		Time:      ts.Format(utils.SheetTimeLayout),
		Notes:     req.Notes,
		TaskID:    req.TaskID,
		Source:    source,
		DeviceID:  req.DeviceID,
	}
	if err := c.store.AppendRecord(ctx, record); err != nil {
		logger.Error("error appending clock-in", slog.String("clockin_id", record.ID), slog.String("error", err.Error()))
		return nil, reject(ReasonAppendFailed, "Failed to log clock-in event. Please try again later.")
	}
	logger.Info("clock-in logged", slog.String("clockin_id", record.ID), slog.String("date", record.Date), slog.String("time", record.Time))
	return record, nil
}

func asRejection(err error) *Rejection {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej
	}
	return reject(ReasonStoreUnavailable, err.Error())
}

func (c *Controller) notifyAsync(logger *slog.Logger, worker *model.Worker, record *model.ClockInRecord) {
	if c.notifier == nil {
		return
	}
	event := Event{
		RecordID:  record.ID,
		WorkerID:  record.WorkerID,
		Worker:    worker.DisplayName(),
		Timestamp: record.Timestamp,
		Date:      record.Date,
		Time:      record.Time,
		Source:    record.Source,
		DeviceID:  record.DeviceID,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("downstream sync panicked", slog.Any("panic", p))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.NotifyTimeout)
		defer cancel()

		err := c.notifier.Notify(ctx, event)
		c.metrics.observeNotify(err)
		if err != nil {
			logger.Warn("downstream sync skipped", slog.String("clockin_id", record.ID), slog.String("error", err.Error()))
		}
	}()
}

func (c *Controller) alertAsync(logger *slog.Logger, message string) {
	if c.alerter == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("alert panicked", slog.Any("panic", p))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.NotifyTimeout)
		defer cancel()
		if err := c.alerter.Alert(ctx, message); err != nil {
			logger.Warn("alert not delivered", slog.String("error", err.Error()))
		}
	}()
}

func (c *Controller) accepted(ctx context.Context, source string, worker *model.Worker, record *model.ClockInRecord) Result {
	res := Result{
		Accepted:   true,
		RecordID:   record.ID,
		Timestamp:  record.Timestamp,
		Message:    fmt.Sprintf("Clock-in recorded (id %s) at %s.", record.ID, utils.FormatClockReadable(record.Timestamp)),
		WorkerName: worker.DisplayName(),
		History:    c.history.History(ctx, record.WorkerID, c.opts.HistoryDays),
	}
	c.metrics.observeOutcome(source, res)
	return res
}

func (c *Controller) rejected(ctx context.Context, logger *slog.Logger, source, workerID string, worker *model.Worker, rej *Rejection) Result {
	res := Result{
		Accepted: false,
		Reason:   rej.Reason,
		Message:  rej.Message,
	}
	res.WorkerName, res.History = c.diagnostics(ctx, logger, workerID, worker, rej.Reason)
	c.metrics.observeOutcome(source, res)

	if rej.Reason.Infrastructure() {
		logger.Error("clock-in failed", slog.String("reason", string(rej.Reason)), slog.String("message", rej.Message))
		c.alertAsync(logger, fmt.Sprintf("Clock-in failure for worker %s (%s): %s", workerID, rej.Reason, rej.Message))
	} else {
		logger.Info("clock-in rejected", slog.String("reason", string(rej.Reason)), slog.String("message", rej.Message))
	}
	return res
}

// diagnostics gathers the worker name and recent history for a rejection page.
// Failures here are logged and never reach the caller.
func (c *Controller) diagnostics(ctx context.Context, logger *slog.Logger, workerID string, worker *model.Worker, reason Reason) (name string, history History) {
	history = History{}
	if reason == ReasonMissingWorkerID || reason == ReasonWorkerNotFound {
		return "", history
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Warn("unable to load report after error", slog.Any("panic", p))
			name, history = "", History{}
		}
	}()

	if worker != nil {
		name = worker.DisplayName()
	} else if w, err := c.workers.FindWorker(ctx, workerID); err == nil && w != nil {
		name = w.DisplayName()
	} else if err != nil {
		logger.Warn("unable to load worker name after error", slog.String("error", err.Error()))
	}

	history = c.history.History(ctx, workerID, c.opts.HistoryDays)
	return name, history
}

// Report is a worker's recent clock-in history, returned without admitting anything.
type Report struct {
	WorkerID   string  `json:"workerId"`
	WorkerName string  `json:"workerName"`
	Days       int     `json:"days"`
	History    History `json:"history"`
}

// Report looks the worker up and returns their history for the last days days.
// Inactive workers may still read their history. Failures are *Rejection.
func (c *Controller) Report(ctx context.Context, workerID string, days int) (*Report, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, reject(ReasonMissingWorkerID, "Worker ID is missing or invalid.")
	}
	if days <= 0 {
		days = c.opts.HistoryDays
	}

	worker, err := c.workers.FindWorker(ctx, workerID)
	if errors.Is(err, ErrWorkerNotFound) || (err == nil && worker == nil) {
		return nil, reject(ReasonWorkerNotFound, fmt.Sprintf("Worker ID %q not found.", workerID))
	}
	if err != nil {
		c.logger.Error("worker lookup failed", slog.String("worker_id", workerID), slog.String("error", err.Error()))
		return nil, reject(ReasonDirectoryUnavailable, "Worker directory is unavailable. Please try again later.")
	}

	return &Report{
		WorkerID:   workerID,
		WorkerName: worker.DisplayName(),
		Days:       days,
		History:    c.history.History(ctx, workerID, days),
	}, nil
}
