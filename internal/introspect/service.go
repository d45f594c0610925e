// Package introspect runs the schema sync workflow: connect to a data
// source, read its catalog, reconcile the result against the stored baseline
// and hand the diff back through a tracked background job. Accepting the
// diff is a separate, explicit step.
package introspect

import (
	"context"
	"fmt"
	"time"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/jobs"
	"github.com/dataquerypro/dataquery/internal/logger"
	"github.com/dataquerypro/dataquery/internal/schema"
)

// Result is the payload of a completed introspection job.
type Result struct {
	Schema     schema.Schema        `json:"schema"`
	Summary    schema.ChangeSummary `json:"summary"`
	HasChanges bool                 `json:"hasChanges"`
}

// Clone returns a deep copy of r; the tracker hands clones to pollers.
func (r Result) Clone() any {
	r.Schema = r.Schema.Clone()
	return r
}

// Baselines loads and stores accepted schemas. Load must return an errs
// NotFound error when a connection has no baseline yet.
type Baselines interface {
	Load(ctx context.Context, connectionID string) (*schema.Schema, error)
	Save(ctx context.Context, s schema.Schema) error
	Delete(ctx context.Context, connectionID string) error
	List(ctx context.Context) ([]string, error)
}

// Service runs introspection jobs.
type Service struct {
	tracker        *jobs.Tracker
	baselines      Baselines
	open           func(ctx context.Context, cfg *database.Config) (database.DB, error)
	connectTimeout time.Duration
	log            *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOpener replaces database.Open.
func WithOpener(open func(ctx context.Context, cfg *database.Config) (database.DB, error)) Option {
	return func(s *Service) {
		if open != nil {
			s.open = open
		}
	}
}

// WithConnectTimeout bounds how long connecting may take.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l.Component("introspect")
		}
	}
}

// NewService wires a Service to its tracker and baseline store.
func NewService(tracker *jobs.Tracker, baselines Baselines, opts ...Option) *Service {
	s := &Service{
		tracker:        tracker,
		baselines:      baselines,
		open:           database.Open,
		connectTimeout: 10 * time.Second,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates desc and starts a background introspection job. It
// returns as soon as the job is registered. An invalid descriptor creates
// no job.
func (s *Service) Submit(ctx context.Context, desc ConnectionDescriptor) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", err
	}

	id := s.tracker.Create()
	s.log.With().Str("job_id", id).Str("connection", desc.String()).Logger().Info("introspection submitted")

	s.tracker.Go(ctx, id, func(ctx context.Context, r jobs.Reporter) (jobs.Outcome, error) {
		res, err := s.Run(ctx, desc, r)
		if err != nil {
			return jobs.Outcome{}, err
		}
		return jobs.Outcome{
			Message: fmt.Sprintf("Found %d tables (%s)", len(res.Schema.Tables), res.Summary),
			Result:  res,
		}, nil
	})
	return id, nil
}

// Run performs one introspection synchronously, reporting progress to r.
// r may be nil.
func (s *Service) Run(ctx context.Context, desc ConnectionDescriptor, r jobs.Reporter) (Result, error) {
	if r == nil {
		r = nopReporter{}
	}
	log := s.log.With().Str("connection", desc.String()).Logger()

	r.Report(10, fmt.Sprintf("Connecting to %s database...", desc.Driver))
	cfg := database.DefaultConfig(desc.Driver, desc.DSN)
	cfg.Namespace = desc.Schema
	cfg.ConnectTimeout = s.connectTimeout

	db, err := s.open(ctx, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("connect to %s: %w", desc.Driver, err)
	}
	defer db.Close()

	r.Report(30, "Reading schema metadata...")
	raw, err := db.InspectSchema(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read schema metadata: %w", err)
	}
	fresh := raw.Snapshot(desc.ConnectionID)
	log.Debugf("read %d tables", len(fresh.Tables))

	r.Report(70, "Comparing with stored schema...")
	current, err := s.loadBaseline(ctx, desc.ConnectionID)
	if err != nil {
		return Result{}, fmt.Errorf("load stored schema: %w", err)
	}

	return s.Preview(current, fresh), nil
}

// Preview reconciles fresh against current without touching any store.
func (s *Service) Preview(current, fresh schema.Schema) Result {
	return Preview(current, fresh)
}

// Preview reconciles fresh against current and summarizes the changes.
func Preview(current, fresh schema.Schema) Result {
	reconciled := schema.ReconcileSchema(current, fresh)
	summary := schema.Summarize(reconciled)
	return Result{
		Schema:     reconciled,
		Summary:    summary,
		HasChanges: summary.Total() > 0,
	}
}

// Accept stores the reconciled schema as the connection's new baseline.
func (s *Service) Accept(ctx context.Context, reconciled schema.Schema) error {
	if reconciled.ConnectionID == "" {
		return errs.New(errs.ErrKindInvalidInput, "schema has no connectionId")
	}
	if err := s.baselines.Save(ctx, reconciled); err != nil {
		return err
	}
	s.log.With().Str("connection_id", reconciled.ConnectionID).Int("tables", len(reconciled.Tables)).Logger().
		Info("baseline accepted")
	return nil
}

// Baseline returns the stored baseline of connectionID.
func (s *Service) Baseline(ctx context.Context, connectionID string) (*schema.Schema, error) {
	return s.baselines.Load(ctx, connectionID)
}

// Forget removes the stored baseline of connectionID, so the next
// introspection reports every table as new.
func (s *Service) Forget(ctx context.Context, connectionID string) error {
	if err := s.baselines.Delete(ctx, connectionID); err != nil {
		return err
	}
	s.log.With().Str("connection_id", connectionID).Logger().Info("baseline removed")
	return nil
}

// Connections lists the connections that have a stored baseline.
func (s *Service) Connections(ctx context.Context) ([]string, error) {
	return s.baselines.List(ctx)
}

// Status returns the job snapshot; see jobs.Tracker.FetchStatus.
func (s *Service) Status(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	return s.tracker.FetchStatus(ctx, jobID)
}

// loadBaseline returns an empty baseline for a connection seen for the
// first time, so every table of the fresh read is reported as new.
func (s *Service) loadBaseline(ctx context.Context, connectionID string) (schema.Schema, error) {
	b, err := s.baselines.Load(ctx, connectionID)
	if errs.IsNotFound(err) {
		return schema.Schema{ConnectionID: connectionID}, nil
	}
	if err != nil {
		return schema.Schema{}, err
	}
	return *b, nil
}

type nopReporter struct{}

func (nopReporter) Report(int, string) {}
