// Package poller implements the client side of the job status protocol:
// start a job, then poll its status at a fixed interval until it reaches a
// terminal state.
//
// Transient fetch failures are logged and retried on the next tick. A caller
// that wants to abandon a job cancels the context; the tracker reclaims the
// orphaned job after its grace period.
package poller

import (
	"context"
	"time"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/jobs"
	"github.com/dataquerypro/dataquery/internal/logger"
)

// DefaultInterval is the delay between two status requests.
const DefaultInterval = 2 * time.Second

// MsgJobNotFound is passed to OnError when the job is unknown or expired.
const MsgJobNotFound = "job not found"

// Fetcher returns the current status of a job. An unknown or expired job
// must be reported as an errs NotFound error.
type Fetcher interface {
	FetchStatus(ctx context.Context, jobID string) (jobs.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, jobID string) (jobs.Snapshot, error)

// FetchStatus calls f.
func (f FetcherFunc) FetchStatus(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	return f(ctx, jobID)
}

// Handlers receive the outcome of a poll. OnComplete and OnError are called
// at most once per Poll, and never both.
type Handlers struct {
	OnProgress func(jobs.Snapshot)
	OnComplete func(result any)
	OnError    func(msg string)
}

// Poller polls one Fetcher.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	log      *logger.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger used for transient failures.
func WithLogger(l *logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l.Component("poller")
		}
	}
}

// New creates a Poller for f.
func New(f Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  f,
		interval: DefaultInterval,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll fetches the job status right away and then once per interval until
// the job completes, fails or disappears, delivering the outcome to h.
// It returns nil once an outcome was delivered and ctx.Err() if the caller
// gave up first.
func (p *Poller) Poll(ctx context.Context, jobID string, h Handlers) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := p.log.With().Str("job_id", jobID).Logger()

	for {
		snap, err := p.fetcher.FetchStatus(ctx, jobID)
		switch {
		case err == nil:
			if done := deliver(snap, h); done {
				return nil
			}
		case errs.IsNotFound(err):
			if h.OnError != nil {
				h.OnError(MsgJobNotFound)
			}
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.WarnWith("status poll failed, retrying", err, nil)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func deliver(snap jobs.Snapshot, h Handlers) bool {
	switch snap.Status {
	case jobs.StatusCompleted:
		if h.OnComplete != nil {
			h.OnComplete(snap.Result)
		}
		return true
	case jobs.StatusError:
		if h.OnError != nil {
			h.OnError(snap.Error)
		}
		return true
	default:
		if h.OnProgress != nil {
			h.OnProgress(snap)
		}
		return false
	}
}

// Wait polls until the job ends and returns its result. A failed or missing
// job is returned as an error. onProgress, when non-nil, receives every
// non-terminal snapshot.
func (p *Poller) Wait(ctx context.Context, jobID string, onProgress func(jobs.Snapshot)) (any, error) {
	var (
		result any
		failed *errs.Error
	)
	err := p.Poll(ctx, jobID, Handlers{
		OnProgress: onProgress,
		OnComplete: func(r any) { result = r },
		OnError: func(msg string) {
			kind := errs.ErrKindQueryFailed
			switch msg {
			case MsgJobNotFound:
				kind = errs.ErrKindNotFound
			case "":
				msg = "job " + jobID + " failed"
			}
			failed = errs.New(kind, msg)
		},
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "stopped polling job "+jobID, err)
	}
	if failed != nil {
		return nil, failed
	}
	return result, nil
}
