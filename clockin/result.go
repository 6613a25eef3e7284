package clockin

import (
	"time"
)

type Reason string

const (
	ReasonMissingWorkerID      Reason = "MissingWorkerID"
	ReasonWorkerNotFound       Reason = "WorkerNotFound"
	ReasonWorkerInactive       Reason = "WorkerInactive"
	ReasonWorkerNameMissing    Reason = "WorkerNameMissing"
	ReasonDuplicateSubmission  Reason = "DuplicateSubmission"
	ReasonOutOfWindow          Reason = "OutOfWindow"
	ReasonTooSoonSinceLastScan Reason = "TooSoonSinceLastScan"

	ReasonLockTimeout          Reason = "LockTimeout"
	ReasonAppendFailed         Reason = "AppendFailed"
	ReasonDirectoryUnavailable Reason = "DirectoryUnavailable"
	ReasonStoreUnavailable     Reason = "StoreUnavailable"
)

// Infrastructure reports whether the reason is a failure of a collaborator
// rather than a business rule. These are safe for the caller to retry later.
func (r Reason) Infrastructure() bool {
	switch r {
	case ReasonLockTimeout, ReasonAppendFailed, ReasonDirectoryUnavailable, ReasonStoreUnavailable:
		return true
	}
	return false
}

// Rejection is returned by the validators and carries a user facing message.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(reason Reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

type Request struct {
	WorkerID string
	Notes    string
	TaskID   string
	DeviceID string
}

type Result struct {
	Accepted   bool      `json:"accepted"`
	RecordID   string    `json:"recordId,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Reason     Reason    `json:"reason,omitempty"`
	Message    string    `json:"message"`
	WorkerName string    `json:"workerName,omitempty"`
	History    History   `json:"history"`
}

// Failure is true for infrastructure failures, as opposed to acceptances and
// business rule rejections.
func (r Result) Failure() bool {
	return !r.Accepted && r.Reason.Infrastructure()
}
