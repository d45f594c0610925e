package jobs

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Cloner is implemented by results that hold reference types. Snapshots
// carry a Clone of such a result, so readers never share the tracker's copy.
// Results that do not implement Cloner must be treated as immutable.
type Cloner interface {
	Clone() any
}

// Job is the tracker's record of one background introspection.
// Only the Tracker mutates it.
type Job struct {
	ID        string
	Status    Status
	Progress  int
	Message   string
	Result    any
	Error     string
	StartTime time.Time

	finishedAt time.Time
}

// Snapshot is the polling wire contract for a job.
// Result is only present when completed, Error only when failed.
type Snapshot struct {
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (j *Job) snapshot() Snapshot {
	s := Snapshot{
		Status:   j.Status,
		Progress: j.Progress,
		Message:  j.Message,
	}
	switch j.Status {
	case StatusCompleted:
		s.Result = j.Result
		if c, ok := j.Result.(Cloner); ok {
			s.Result = c.Clone()
		}
	case StatusError:
		s.Error = j.Error
	}
	return s
}

// expired reports whether a terminal job has outlived the grace period.
func (j *Job) expired(now time.Time, grace time.Duration) bool {
	return j.Status.Terminal() && now.Sub(j.finishedAt) > grace
}
