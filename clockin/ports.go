package clockin

import (
	"context"
	"errors"
	"time"

	"carolinalumpers.com/clockin/model"
)

var ErrWorkerNotFound = errors.New("worker not found")

// WorkerDirectory resolves worker identity and eligibility.
type WorkerDirectory interface {
	FindWorker(ctx context.Context, workerID string) (*model.Worker, error)
}

// RecordStore is the append-only clock-in log. QueryRecords returns records
// in chronological order.
type RecordStore interface {
	AppendRecord(ctx context.Context, record *model.ClockInRecord) error
	QueryRecords(ctx context.Context, workerID string) ([]model.ClockInRecord, error)
}

// Locker hands out mutual exclusion for key. Acquire fails once timeout elapses.
type Locker interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error)
}

// SubmissionCache is the short-TTL guard against double submissions.
type SubmissionCache interface {
	Get(key string) bool
	Put(key string, ttl time.Duration)
}

// submissionAdder is implemented by caches that can check and insert in one step.
type submissionAdder interface {
	Add(key string, ttl time.Duration) bool
}

// Event describes an accepted clock-in for downstream systems.
type Event struct {
	RecordID  string    `json:"recordId"`
	WorkerID  string    `json:"workerId"`
	Worker    string    `json:"worker"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Source    string    `json:"source"`
	DeviceID  string    `json:"deviceId,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Notifiers fans an event out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Alerter interface {
	Alert(ctx context.Context, message string) error
}
