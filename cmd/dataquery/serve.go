package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dataquerypro/dataquery/internal/baseline"
	"github.com/dataquerypro/dataquery/internal/filestore"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/jobs"
	"github.com/dataquerypro/dataquery/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the introspection HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, closeFn, err := a.newService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			a.log.With().Str("version", version).Str("store", a.cfg.Store.Provider).Logger().
				Info("starting dataquery")
			return server.New(svc, a.cfg.Server, version, a.log).Run(ctx)
		},
	}
}

// newService wires a tracker, the configured baseline store and an
// introspect.Service. The returned func closes the store and waits for
// running jobs.
func (a *app) newService(ctx context.Context) (*introspect.Service, func(), error) {
	files, err := filestore.Open(ctx, a.cfg.FilestoreConfig())
	if err != nil {
		return nil, nil, err
	}
	baselines := baseline.New(files, a.cfg.Store.Bucket)
	if err := baselines.Init(ctx); err != nil {
		_ = files.Close()
		return nil, nil, err
	}

	tracker := jobs.NewTracker(
		jobs.WithGracePeriod(a.cfg.Jobs.GracePeriod),
		jobs.WithLogger(a.log),
	)
	svc := introspect.NewService(tracker, baselines,
		introspect.WithConnectTimeout(a.cfg.Introspection.ConnectTimeout),
		introspect.WithLogger(a.log),
	)

	closeFn := func() {
		tracker.Wait()
		if err := files.Close(); err != nil {
			a.log.WarnWith("closing file store", err, nil)
		}
	}
	return svc, closeFn, nil
}
