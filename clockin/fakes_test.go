package clockin

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"carolinalumpers.com/clockin/model"
)

type memStore struct {
	mu        sync.Mutex
	records   []model.ClockInRecord
	appendErr error
	queryErr  error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) AppendRecord(_ context.Context, record *model.ClockInRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *memStore) QueryRecords(_ context.Context, workerID string) ([]model.ClockInRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []model.ClockInRecord
	for _, r := range s.records {
		if r.WorkerID == workerID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.ClockInRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type panicStore struct{}

func (panicStore) AppendRecord(context.Context, *model.ClockInRecord) error {
	panic("append")
}

func (panicStore) QueryRecords(context.Context, string) ([]model.ClockInRecord, error) {
	panic("query")
}

type memDirectory struct {
	workers map[string]*model.Worker
	err     error
}

func (d *memDirectory) FindWorker(_ context.Context, workerID string) (*model.Worker, error) {
	if d.err != nil {
		return nil, d.err
	}
	w, ok := d.workers[strings.TrimSpace(workerID)]
	if !ok {
		return nil, ErrWorkerNotFound
	}
	return w, nil
}

// spyLocker serialises per key with a channel and records each key it was asked for.
type spyLocker struct {
	mu    sync.Mutex
	keys  []string
	locks map[string]chan struct{}
	err   error
}

func newSpyLocker() *spyLocker {
	return &spyLocker{locks: map[string]chan struct{}{}}
}

func (l *spyLocker) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	if l.err != nil {
		l.mu.Unlock()
		return nil, l.err
	}
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, errors.New("lock timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *spyLocker) acquired() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.keys)
}

// clockCache is a Get/Put cache driven by a fake clock.
type clockCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

func newClockCache(now func() time.Time) *clockCache {
	return &clockCache{now: now, entries: map[string]time.Time{}}
}

func (c *clockCache) Get(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.entries[key]
	return ok && c.now().Before(exp)
}

func (c *clockCache) Put(key string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = c.now().Add(ttl)
}

// forgetfulCache never remembers a submission.
type forgetfulCache struct{}

func (forgetfulCache) Get(string) bool { return false }
func (forgetfulCache) Put(string, time.Duration) {}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
	panics bool
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	if n.panics {
		panic("notifier exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

// received returns the delivered events ordered by timestamp; delivery order
// across goroutines is not.
func (n *recordingNotifier) received() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := slices.Clone(n.events)
	slices.SortStableFunc(events, func(a, b Event) int { return a.Timestamp.Compare(b.Timestamp) })
	return events
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Alert(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

func (a *recordingAlerter) received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.messages)
}
