// Package jobs tracks background introspection jobs.
//
// A Tracker is the process-wide registry of jobs keyed by an opaque ID. Jobs
// move pending → processing → completed | error. Terminal jobs stay
// queryable for a grace period and are then deleted lazily, on the next
// lookup of their ID. There is no sweeper goroutine.
//
// Construct one Tracker at process start and pass it to whoever submits or
// polls jobs.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/logger"
)

// DefaultGracePeriod is how long a finished job stays queryable.
const DefaultGracePeriod = 5 * time.Minute

// Tracker is safe for concurrent use. One mutex guards the job map; no
// operation performs I/O while holding it.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*Job

	grace time.Duration
	now   func() time.Time
	newID func() string

	// wg tracks worker goroutines started by Go.
	wg sync.WaitGroup

	log *logger.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithGracePeriod sets how long terminal jobs stay queryable.
func WithGracePeriod(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.grace = d
		}
	}
}

// WithIDGenerator replaces the job ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l.Component("jobs")
		}
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		jobs:  make(map[string]*Job),
		grace: DefaultGracePeriod,
		now:   time.Now,
		newID: newJobID,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// newJobID returns a UUIDv7: a millisecond timestamp followed by random bits.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Create registers a new pending job and returns its ID.
func (t *Tracker) Create() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	for _, taken := t.jobs[id]; taken; _, taken = t.jobs[id] {
		id = t.newID()
	}

	t.jobs[id] = &Job{
		ID:        id,
		Status:    StatusPending,
		StartTime: t.now(),
	}
	t.log.With().Str("job_id", id).Logger().Debug("job created")
	return id
}

// Start moves a pending job to processing.
func (t *Tracker) Start(id, message string) error {
	return t.update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.Message = message
	})
}

// Progress records the progress percentage and phase message of a running
// job. percent is clamped to 0..100. A pending job is moved to processing.
func (t *Tracker) Progress(id string, percent int, message string) error {
	return t.update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.Progress = clamp(percent)
		j.Message = message
	})
}

// Complete marks a job as completed with its result payload.
func (t *Tracker) Complete(id, message string, result any) error {
	return t.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = 100
		j.Message = message
		j.Result = result
		j.finishedAt = t.now()
	})
}

// Fail marks a job as failed with the given error text.
func (t *Tracker) Fail(id, errMsg string) error {
	return t.update(id, func(j *Job) {
		j.Status = StatusError
		j.Progress = 0
		j.Message = ""
		j.Error = errMsg
		j.finishedAt = t.now()
	})
}

func (t *Tracker) update(id string, mutate func(*Job)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "job %s not found", id)
	}
	if j.Status.Terminal() {
		return errs.Newf(errs.ErrKindConflict, "job %s already %s", id, j.Status)
	}
	mutate(j)
	return nil
}

// Get returns the current state of a job. Unknown IDs and terminal jobs past
// the grace period report false; expired jobs are deleted here.
func (t *Tracker) Get(id string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	if j.expired(t.now(), t.grace) {
		delete(t.jobs, id)
		t.log.With().Str("job_id", id).Logger().Debug("job expired")
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// Len returns the number of jobs currently held, expired ones included.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// FetchStatus implements the poller's Fetcher for in-process polling.
func (t *Tracker) FetchStatus(_ context.Context, id string) (Snapshot, error) {
	s, ok := t.Get(id)
	if !ok {
		return Snapshot{}, errs.Newf(errs.ErrKindNotFound, "job %s not found", id)
	}
	return s, nil
}

// --- background execution ---

// Reporter lets a worker publish progress for its job.
type Reporter interface {
	Report(percent int, message string)
}

// Outcome is what a successful worker hands back.
type Outcome struct {
	Message string
	Result  any
}

// WorkFunc is the body of a background job.
type WorkFunc func(ctx context.Context, r Reporter) (Outcome, error)

// Go runs work for job id in its own goroutine and returns immediately.
//
// The goroutine keeps ctx's values but not its cancellation, so the job
// outlives the request that submitted it. Errors and panics from work end
// the job in the error state; they never reach the caller.
func (t *Tracker) Go(ctx context.Context, id string, work WorkFunc) {
	ctx = context.WithoutCancel(ctx)
	log := t.log.With().Str("job_id", id).Logger()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("job panicked: %v", rec)
				t.finishFailed(id, fmt.Sprintf("internal error: %v", rec), log)
			}
		}()

		if err := t.Start(id, "Starting..."); err != nil {
			log.ErrorWith("cannot start job", err, nil)
			return
		}

		out, err := work(ctx, &reporter{t: t, id: id, log: log})
		if err != nil {
			log.ErrorWith("job failed", err, nil)
			t.finishFailed(id, err.Error(), log)
			return
		}

		if err := t.Complete(id, out.Message, out.Result); err != nil {
			log.ErrorWith("cannot complete job", err, nil)
			return
		}
		log.Info("job completed")
	}()
}

func (t *Tracker) finishFailed(id, msg string, log *logger.Logger) {
	if err := t.Fail(id, msg); err != nil {
		log.ErrorWith("cannot mark job failed", err, nil)
	}
}

// Wait blocks until every goroutine started by Go has returned.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

type reporter struct {
	t   *Tracker
	id  string
	log *logger.Logger
}

func (r *reporter) Report(percent int, message string) {
	if err := r.t.Progress(r.id, percent, message); err != nil {
		r.log.WarnWith("progress update dropped", err, nil)
	}
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
