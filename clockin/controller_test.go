package clockin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"carolinalumpers.com/clockin/infrastructure/cache"
	"carolinalumpers.com/clockin/infrastructure/lock"
	"carolinalumpers.com/clockin/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ctrl     *Controller
	store    *memStore
	dir      *memDirectory
	locker   *spyLocker
	clock    *fakeClock
	notifier *recordingNotifier
	alerter  *recordingAlerter
	loc      *time.Location
}

func (h *harness) at(hour, min int) time.Time {
	return time.Date(2025, 3, 14, hour, min, 0, 0, h.loc)
}

func newHarness(t *testing.T, configure ...func(*Options, *Dependencies)) *harness {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	h := &harness{
		store: newMemStore(),
		dir: &memDirectory{workers: map[string]*model.Worker{
			"W1": {WorkerID: "W1", Name: "Ana Ruiz", AvailabilityStatus: "Active"},
			"W2": {WorkerID: "W2", Name: "Ben Ortiz", AvailabilityStatus: "Inactive"},
			"W3": {WorkerID: "W3", Name: "  ", AvailabilityStatus: "active"},
			"W4": {WorkerID: "W4", Name: "Cruz Diaz", AvailabilityStatus: "Active"},
		}},
		locker:   newSpyLocker(),
		clock:    &fakeClock{},
		notifier: &recordingNotifier{},
		alerter:  &recordingAlerter{},
		loc:      loc,
	}
	h.clock.Set(h.at(10, 0))

	opts := DefaultOptions()
	opts.Location = loc
	opts.LockTimeout = 200 * time.Millisecond
	deps := Dependencies{
		Workers:  h.dir,
		Store:    h.store,
		Locker:   h.locker,
		Cache:    newClockCache(h.clock.Now),
		Notifier: h.notifier,
		Alerter:  h.alerter,
		Now:      h.clock.Now,
	}
	for _, fn := range configure {
		fn(&opts, &deps)
	}

	h.ctrl, err = NewController(opts, deps)
	require.NoError(t, err)
	t.Cleanup(h.ctrl.Wait)
	return h
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(DefaultOptions(), Dependencies{})
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.WorkHours = WorkHours{Start: 18, End: 7}
	_, err = NewController(opts, Dependencies{
		Workers: &memDirectory{},
		Store:   newMemStore(),
		Locker:  newSpyLocker(),
		Cache:   forgetfulCache{},
	})
	assert.Error(t, err)
}

func TestSubmitClockInScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1", Notes: "dock 4"})
	require.True(t, res.Accepted, res.Message)
	assert.True(t, strings.HasPrefix(res.RecordID, "CLK-"))
	assert.Equal(t, "Ana Ruiz", res.WorkerName)
	assert.True(t, res.Timestamp.Equal(h.at(10, 0)))
	assert.Contains(t, res.Message, "10:00 AM")
	assert.Equal(t, []HistoryEntry{{Time: "10:00:00"}}, res.History["03/14/2025"])

	h.clock.Set(h.at(10, 10))
	res = h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonTooSoonSinceLastScan, res.Reason)
	assert.Contains(t, res.Message, "10:00:00")
	assert.Equal(t, "Ana Ruiz", res.WorkerName)
	assert.Len(t, res.History["03/14/2025"], 1)

	h.clock.Set(h.at(10, 25))
	res = h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.True(t, res.Accepted, res.Message)
	assert.Equal(t, []HistoryEntry{{Time: "10:00:00"}, {Time: "10:25:00"}}, res.History["03/14/2025"])

	h.clock.Set(time.Date(2025, 3, 15, 5, 30, 0, 0, h.loc))
	res = h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonOutOfWindow, res.Reason)
	assert.Contains(t, res.Message, "5:00 AM")
	assert.Contains(t, res.Message, "7:00 AM")

	assert.Equal(t, 2, h.store.count())
	assert.False(t, res.Failure())

	h.ctrl.Wait()
	events := h.notifier.received()
	require.Len(t, events, 2)
	assert.Equal(t, "W1", events[0].WorkerID)
	assert.Equal(t, "Ana Ruiz", events[0].Worker)
	assert.Equal(t, "03/14/2025", events[0].Date)
	assert.Equal(t, "10:00:00", events[0].Time)
	assert.Equal(t, model.SourceLive, events[0].Source)
	assert.Equal(t, "10:25:00", events[1].Time)
	assert.Empty(t, h.alerter.received())
}

func TestSubmitClockInStoresRequestFields(t *testing.T) {
	h := newHarness(t, func(_ *Options, deps *Dependencies) {
		deps.NewID = func() string { return "CLK-fixed" }
	})

	res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: " W1 ", Notes: "dock 4", TaskID: "T-9", DeviceID: "kiosk-2"})
	require.True(t, res.Accepted)
	assert.Equal(t, "CLK-fixed", res.RecordID)

	records, err := h.store.QueryRecords(context.Background(), "W1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.ClockInRecord{
		ID:        "CLK-fixed",
		WorkerID:  "W1",
		Timestamp: h.at(10, 0),
		Date:      "03/14/2025",
		Time:      "10:00:00",
		Notes:     "dock 4",
		TaskID:    "T-9",
		Source:    model.SourceLive,
		DeviceID:  "kiosk-2",
	}, records[0])
}

func TestSubmitClockInWorkerRejections(t *testing.T) {
	tests := []struct {
		name     string
		workerID string
		reason   Reason
		worker   string
	}{
		{name: "missing id", workerID: "   ", reason: ReasonMissingWorkerID},
		{name: "unknown worker", workerID: "W9", reason: ReasonWorkerNotFound},
		{name: "inactive worker", workerID: "W2", reason: ReasonWorkerInactive, worker: "Ben Ortiz"},
		{name: "blank name", workerID: "W3", reason: ReasonWorkerNameMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: tt.workerID})
			assert.False(t, res.Accepted)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.worker, res.WorkerName)
			assert.NotNil(t, res.History)
			assert.Empty(t, h.locker.acquired())
			assert.Zero(t, h.store.count())
		})
	}
}

func TestSubmitClockInDirectoryUnavailable(t *testing.T) {
	h := newHarness(t)
	h.dir.err = errors.New("sheet timeout")

	res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	assert.Equal(t, ReasonDirectoryUnavailable, res.Reason)
	assert.True(t, res.Failure())
	assert.Empty(t, h.locker.acquired())

	h.ctrl.Wait()
	require.Len(t, h.alerter.received(), 1)
	assert.Contains(t, h.alerter.received()[0], "W1")
}

func TestSubmitClockInDuplicateSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	require.True(t, first.Accepted)

	second := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.False(t, second.Accepted)
	assert.Equal(t, ReasonDuplicateSubmission, second.Reason)
	assert.Len(t, h.locker.acquired(), 1)

	// other workers are unaffected
	other := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W4"})
	assert.True(t, other.Accepted)

	// the guard expires with its TTL; the cooldown still applies
	h.clock.Set(h.at(10, 3))
	third := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.Equal(t, ReasonTooSoonSinceLastScan, third.Reason)
	assert.Equal(t, 2, h.store.count())
}

func TestSubmitClockInRejectedAttemptStillCountsAsSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.clock.Set(h.at(6, 59))
	res := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.Equal(t, ReasonOutOfWindow, res.Reason)

	h.clock.Set(h.at(7, 0))
	res = h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.Equal(t, ReasonDuplicateSubmission, res.Reason)

	h.clock.Set(h.at(7, 2))
	res = h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.True(t, res.Accepted)
}

func TestSubmitClockInConcurrentDuplicates(t *testing.T) {
	h := newHarness(t, func(_ *Options, deps *Dependencies) {
		deps.Cache = cache.NewSubmissionGuard(DefaultSubmissionTTL, time.Minute)
		deps.Locker = lock.NewKeyedLock()
	})

	const n = 25
	results := make([]Result, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
		}()
	}
	wg.Wait()

	accepted := 0
	for _, res := range results {
		if res.Accepted {
			accepted++
			continue
		}
		assert.Equal(t, ReasonDuplicateSubmission, res.Reason)
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, h.store.count())
}

func TestSubmitClockInLockSerialisesValidation(t *testing.T) {
	h := newHarness(t, func(opts *Options, deps *Dependencies) {
		deps.Cache = forgetfulCache{}
		deps.Locker = lock.NewKeyedLock()
		opts.LockTimeout = 5 * time.Second
	})

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	reasons := map[Reason]int{}
	accepted := 0
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
			mu.Lock()
			defer mu.Unlock()
			if res.Accepted {
				accepted++
				return
			}
			reasons[res.Reason]++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, map[Reason]int{ReasonTooSoonSinceLastScan: n - 1}, reasons)
	assert.Equal(t, 1, h.store.count())
}

func TestSubmitClockInLockScope(t *testing.T) {
	perWorker := newHarness(t)
	perWorker.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	assert.Equal(t, []string{"clockin-W1"}, perWorker.locker.acquired())

	global := newHarness(t, func(opts *Options, _ *Dependencies) {
		opts.GlobalLock = true
	})
	global.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	global.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W4"})
	assert.Equal(t, []string{"clockin", "clockin"}, global.locker.acquired())
}

func TestSubmitClockInInfrastructureFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		reason Reason
	}{
		{
			name:   "lock timeout",
			setup:  func(h *harness) { h.locker.err = errors.New("timed out") },
			reason: ReasonLockTimeout,
		},
		{
			name:   "append failure",
			setup:  func(h *harness) { h.store.appendErr = errors.New("quota exceeded") },
			reason: ReasonAppendFailed,
		},
		{
			name:   "store unreadable",
			setup:  func(h *harness) { h.store.queryErr = errors.New("sheet unavailable") },
			reason: ReasonStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h)

			res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
			assert.False(t, res.Accepted)
			assert.Equal(t, tt.reason, res.Reason)
			assert.True(t, res.Failure())
			assert.Equal(t, "Ana Ruiz", res.WorkerName)
			assert.NotNil(t, res.History)
			assert.Zero(t, h.store.count())

			h.ctrl.Wait()
			assert.Len(t, h.alerter.received(), 1)
			assert.Empty(t, h.notifier.received())
		})
	}
}

func TestSubmitClockInHeldLockTimesOut(t *testing.T) {
	h := newHarness(t, func(opts *Options, _ *Dependencies) {
		opts.LockTimeout = 20 * time.Millisecond
	})

	release, err := h.locker.Acquire(context.Background(), "clockin-W1", time.Second)
	require.NoError(t, err)
	defer release()

	res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	assert.Equal(t, ReasonLockTimeout, res.Reason)
	assert.Zero(t, h.store.count())
}

func TestSubmitClockInNotifierFailureDoesNotAffectResult(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("appsheet down")

	res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	assert.True(t, res.Accepted)

	h.ctrl.Wait()
	assert.Len(t, h.notifier.received(), 1)
	assert.Equal(t, 1, h.store.count())
}

func TestSubmitClockInNotifierPanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.notifier.panics = true

	res := h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	assert.True(t, res.Accepted)
	assert.NotPanics(t, h.ctrl.Wait)
}

func TestSubmitClockInCancelledAfterLockStillCompletes(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	h.store.mu.Lock()
	done := make(chan Result)
	go func() {
		done <- h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	}()
	// wait until the request holds the lock and blocks on the store
	require.Eventually(t, func() bool { return len(h.locker.acquired()) == 1 }, time.Second, time.Millisecond)
	cancel()
	h.store.mu.Unlock()

	res := <-done
	assert.True(t, res.Accepted, res.Message)
	assert.Equal(t, 1, h.store.count())
}

func TestSubmitClockInDiagnosticsSwallowPanics(t *testing.T) {
	h := newHarness(t, func(_ *Options, deps *Dependencies) {
		deps.Store = panicStore{}
	})

	var res Result
	assert.NotPanics(t, func() {
		res = h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W2"})
	})
	assert.Equal(t, ReasonWorkerInactive, res.Reason)
	assert.NotNil(t, res.History)
	assert.Empty(t, res.History)
}

func TestBackfill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.ctrl.Backfill(ctx, "W1", h.at(8, 0), "kiosk-1")
	require.True(t, res.Accepted, res.Message)
	assert.True(t, res.Timestamp.Equal(h.at(8, 0)))

	// imports bypass the submission cache but not the cooldown
	res = h.ctrl.Backfill(ctx, "W1", h.at(8, 5), "kiosk-1")
	assert.Equal(t, ReasonTooSoonSinceLastScan, res.Reason)

	res = h.ctrl.Backfill(ctx, "W1", h.at(9, 0), "kiosk-1")
	assert.True(t, res.Accepted)

	res = h.ctrl.Backfill(ctx, "W1", time.Date(2025, 3, 15, 3, 0, 0, 0, h.loc), "kiosk-1")
	assert.Equal(t, ReasonOutOfWindow, res.Reason)

	res = h.ctrl.Backfill(ctx, "W2", h.at(9, 0), "kiosk-1")
	assert.Equal(t, ReasonWorkerInactive, res.Reason)

	records, err := h.store.QueryRecords(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, model.SourceImport, r.Source)
		assert.Equal(t, "kiosk-1", r.DeviceID)
	}

	// a live scan follows the imported history
	h.clock.Set(h.at(9, 10))
	live := h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"})
	assert.Equal(t, ReasonTooSoonSinceLastScan, live.Reason)
}

func TestBackfillBeforeLaterLiveScan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.clock.Set(h.at(11, 0))
	require.True(t, h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"}).Accepted)

	res := h.ctrl.Backfill(ctx, "W1", h.at(8, 0), "kiosk-1")
	require.True(t, res.Accepted, res.Message)

	res = h.ctrl.Backfill(ctx, "W1", h.at(8, 0), "kiosk-1")
	assert.Equal(t, ReasonTooSoonSinceLastScan, res.Reason)

	res = h.ctrl.Backfill(ctx, "W1", h.at(10, 50), "kiosk-1")
	assert.Equal(t, ReasonTooSoonSinceLastScan, res.Reason)
	assert.Contains(t, res.Message, "11:00:00")

	records, err := h.store.QueryRecords(ctx, "W1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "08:00:00", records[0].Time)
	assert.Equal(t, model.SourceImport, records[0].Source)
	assert.Equal(t, "11:00:00", records[1].Time)

	// live scans still compare against the latest record
	h.clock.Set(h.at(11, 10))
	assert.Equal(t, ReasonTooSoonSinceLastScan, h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"}).Reason)
}

func TestBackfillConvertsToBusinessTime(t *testing.T) {
	h := newHarness(t)

	// 14:00 UTC is 10:00 in New York during daylight saving time
	res := h.ctrl.Backfill(context.Background(), "W1", time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC), "")
	require.True(t, res.Accepted)

	records, err := h.store.QueryRecords(context.Background(), "W1")
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", records[0].Time)
	assert.Equal(t, "03/14/2025", records[0].Date)
}

func TestControllerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := newHarness(t, func(_ *Options, deps *Dependencies) {
		deps.Metrics = metrics
	})

	h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W1"})
	h.ctrl.SubmitClockIn(context.Background(), Request{WorkerID: "W9"})
	h.ctrl.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues(model.SourceLive, "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues(model.SourceLive, string(ReasonDuplicateSubmission))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues(model.SourceLive, string(ReasonWorkerNotFound))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.notify.WithLabelValues("ok")))
}

func TestReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.True(t, h.ctrl.SubmitClockIn(ctx, Request{WorkerID: "W1"}).Accepted)

	report, err := h.ctrl.Report(ctx, "W1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", report.WorkerName)
	assert.Equal(t, DefaultHistoryDays, report.Days)
	assert.Equal(t, []string{"03/14/2025"}, report.History.Days())

	// inactive workers can still read their history
	report, err = h.ctrl.Report(ctx, "W2", 3)
	require.NoError(t, err)
	assert.Empty(t, report.History)

	var rej *Rejection
	_, err = h.ctrl.Report(ctx, "W9", 7)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonWorkerNotFound, rej.Reason)

	_, err = h.ctrl.Report(ctx, "", 7)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonMissingWorkerID, rej.Reason)

	h.dir.err = errors.New("timeout")
	_, err = h.ctrl.Report(ctx, "W1", 7)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonDirectoryUnavailable, rej.Reason)
}
