package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/jobs"
	"github.com/dataquerypro/dataquery/internal/poller"
)

type introspectOptions struct {
	desc      introspect.ConnectionDescriptor
	driver    string
	serverURL string
	accept    bool
	full      bool
}

func newIntrospectCmd(a *app) *cobra.Command {
	o := &introspectOptions{}

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Read a database catalog and report drift from the stored schema",
		Long: `introspect submits an introspection job and polls it until it finishes.

With --server the job runs on a dataquery API server; otherwise it runs in
this process against the configured baseline store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.desc.Driver = database.Driver(o.driver)
			if o.serverURL != "" {
				return a.introspectRemote(cmd, o)
			}
			return a.introspectLocal(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.desc.ConnectionID, "connection", "", "connection id the baseline is stored under")
	f.StringVar(&o.driver, "driver", "", "database driver (postgres, mysql, sqlite, mssql)")
	f.StringVar(&o.desc.DSN, "dsn", "", "data source name")
	f.StringVar(&o.desc.Schema, "schema", "", "schema to read (driver default when empty)")
	f.StringVar(&o.serverURL, "server", "", "base URL of a dataquery server, e.g. http://localhost:8080")
	f.BoolVar(&o.accept, "accept", false, "store the result as the new baseline")
	f.BoolVar(&o.full, "all", false, "list unchanged columns too")
	return cmd
}

func (a *app) introspectLocal(cmd *cobra.Command, o *introspectOptions) error {
	ctx := cmd.Context()

	svc, closeFn, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := svc.Submit(ctx, o.desc)
	if err != nil {
		return err
	}
	res, err := a.wait(ctx, cmd, poller.FetcherFunc(svc.Status), id)
	if err != nil {
		return err
	}

	renderResult(cmd.OutOrStdout(), res, o.full)
	if o.accept {
		if err := svc.Accept(ctx, res.Schema); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "baseline for %s accepted\n", o.desc.ConnectionID)
	}
	return nil
}

func (a *app) introspectRemote(cmd *cobra.Command, o *introspectOptions) error {
	ctx := cmd.Context()
	client := poller.NewClient(o.serverURL, nil)

	id, err := client.Start(ctx, o.desc)
	if err != nil {
		return err
	}
	a.log.With().Str("job_id", id).Logger().Debugf("submitted to %s", o.serverURL)

	res, err := a.wait(ctx, cmd, client, id)
	if err != nil {
		return err
	}

	renderResult(cmd.OutOrStdout(), res, o.full)
	if o.accept {
		if err := client.Accept(ctx, res.Schema); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "baseline for %s accepted\n", o.desc.ConnectionID)
	}
	return nil
}

// wait polls jobID on f, printing progress lines to stderr.
func (a *app) wait(ctx context.Context, cmd *cobra.Command, f poller.Fetcher, jobID string) (introspect.Result, error) {
	p := poller.New(f, poller.WithInterval(a.cfg.Jobs.PollInterval), poller.WithLogger(a.log))

	var last string
	result, err := p.Wait(ctx, jobID, func(s jobs.Snapshot) {
		if s.Message != last {
			last = s.Message
			fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", s.Progress, s.Message)
		}
	})
	if err != nil {
		return introspect.Result{}, err
	}
	return decodeResult(result)
}

// decodeResult accepts the in-process result or the raw JSON handed back by
// the HTTP client.
func decodeResult(v any) (introspect.Result, error) {
	switch r := v.(type) {
	case introspect.Result:
		return r, nil
	case json.RawMessage:
		var res introspect.Result
		if err := json.Unmarshal(r, &res); err != nil {
			return introspect.Result{}, errs.Wrap(errs.ErrKindQueryFailed, "decode job result", err)
		}
		return res, nil
	default:
		return introspect.Result{}, errs.Newf(errs.ErrKindQueryFailed, "unexpected job result %T", v)
	}
}
