package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/jobs"
)

type step struct {
	snap jobs.Snapshot
	err  error
}

// scripted returns its steps in order and repeats the last one.
type scripted struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (s *scripted) FetchStatus(context.Context, string) (jobs.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i].snap, s.steps[i].err
}

func (s *scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fast(f Fetcher) *Poller {
	return New(f, WithInterval(time.Millisecond))
}

func TestPoll_CompletesOnce(t *testing.T) {
	f := &scripted{steps: []step{
		{snap: jobs.Snapshot{Status: jobs.StatusPending}},
		{snap: jobs.Snapshot{Status: jobs.StatusProcessing, Progress: 30}},
		{snap: jobs.Snapshot{Status: jobs.StatusCompleted, Progress: 100, Result: "ok"}},
	}}

	var (
		progress []int
		results  []any
	)
	err := fast(f).Poll(context.Background(), "j1", Handlers{
		OnProgress: func(s jobs.Snapshot) { progress = append(progress, s.Progress) },
		OnComplete: func(r any) { results = append(results, r) },
		OnError:    func(string) { t.Fatal("unexpected OnError") },
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 30}, progress)
	assert.Equal(t, []any{"ok"}, results)
	assert.Equal(t, 3, f.Calls())
}

func TestPoll_FetchesImmediately(t *testing.T) {
	f := &scripted{steps: []step{{snap: jobs.Snapshot{Status: jobs.StatusCompleted}}}}

	start := time.Now()
	err := New(f, WithInterval(time.Hour)).Poll(context.Background(), "j1", Handlers{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, f.Calls())
}

func TestPoll_JobError(t *testing.T) {
	f := &scripted{steps: []step{
		{snap: jobs.Snapshot{Status: jobs.StatusProcessing}},
		{snap: jobs.Snapshot{Status: jobs.StatusError, Error: "connection refused"}},
	}}

	var msgs []string
	err := fast(f).Poll(context.Background(), "j1", Handlers{
		OnComplete: func(any) { t.Fatal("unexpected OnComplete") },
		OnError:    func(m string) { msgs = append(msgs, m) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"connection refused"}, msgs)
}

func TestPoll_NotFound(t *testing.T) {
	f := &scripted{steps: []step{{err: errs.New(errs.ErrKindNotFound, "gone")}}}

	var msgs []string
	err := fast(f).Poll(context.Background(), "j1", Handlers{
		OnError: func(m string) { msgs = append(msgs, m) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{MsgJobNotFound}, msgs)
	assert.Equal(t, 1, f.Calls())
}

func TestPoll_RetriesTransientErrors(t *testing.T) {
	f := &scripted{steps: []step{
		{err: errors.New("connection reset")},
		{err: errs.New(errs.ErrKindConnectionFailed, "refused")},
		{snap: jobs.Snapshot{Status: jobs.StatusCompleted, Result: 42}},
	}}

	var got any
	err := fast(f).Poll(context.Background(), "j1", Handlers{
		OnComplete: func(r any) { got = r },
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, f.Calls())
}

func TestPoll_CancelStops(t *testing.T) {
	f := &scripted{steps: []step{{snap: jobs.Snapshot{Status: jobs.StatusProcessing}}}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := fast(f).Poll(ctx, "j1", Handlers{
		OnComplete: func(any) { called = true },
		OnError:    func(string) { called = true },
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestWait(t *testing.T) {
	done := &scripted{steps: []step{{snap: jobs.Snapshot{Status: jobs.StatusCompleted, Result: "r"}}}}
	res, err := fast(done).Wait(context.Background(), "j", nil)
	require.NoError(t, err)
	assert.Equal(t, "r", res)

	failed := &scripted{steps: []step{{snap: jobs.Snapshot{Status: jobs.StatusError, Error: "boom"}}}}
	_, err = fast(failed).Wait(context.Background(), "j", nil)
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), "boom")

	missing := &scripted{steps: []step{{err: errs.New(errs.ErrKindNotFound, "")}}}
	_, err = fast(missing).Wait(context.Background(), "j", nil)
	assert.True(t, errs.IsNotFound(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pending := &scripted{steps: []step{{snap: jobs.Snapshot{Status: jobs.StatusPending}}}}
	_, err = fast(pending).Wait(ctx, "j", nil)
	assert.True(t, errs.IsTimeout(err))
}

func TestPoll_AgainstTracker(t *testing.T) {
	tracker := jobs.NewTracker()
	id := tracker.Create()

	release := make(chan struct{})
	tracker.Go(context.Background(), id, func(_ context.Context, r jobs.Reporter) (jobs.Outcome, error) {
		r.Report(50, "halfway")
		<-release
		return jobs.Outcome{Message: "done", Result: "payload"}, nil
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	res, err := New(tracker, WithInterval(2*time.Millisecond)).Wait(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, "payload", res)

	_, err = fast(tracker).Wait(context.Background(), "no-such-job", nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestFetcherFunc(t *testing.T) {
	var asked string
	f := FetcherFunc(func(_ context.Context, id string) (jobs.Snapshot, error) {
		asked = id
		return jobs.Snapshot{Status: jobs.StatusCompleted, Result: 7}, nil
	})

	res, err := fast(f).Wait(context.Background(), "job-7", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, res)
	assert.Equal(t, "job-7", asked)
}

func TestWait_ReportsProgressAndEmptyFailure(t *testing.T) {
	f := &scripted{steps: []step{
		{snap: jobs.Snapshot{Status: jobs.StatusProcessing, Progress: 30, Message: "Reading schema metadata..."}},
		{snap: jobs.Snapshot{Status: jobs.StatusError}},
	}}

	var seen []int
	_, err := fast(f).Wait(context.Background(), "j", func(s jobs.Snapshot) { seen = append(seen, s.Progress) })
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), "job j failed")
	assert.Equal(t, []int{30}, seen)
}
