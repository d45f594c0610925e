package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/schema"
)

func newDiffCmd(_ *app) *cobra.Command {
	var (
		full   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "diff STORED FRESH",
		Short: "Reconcile two schema snapshot files offline",
		Long: `diff reconciles FRESH against STORED and prints the changes.

Both files hold a schema snapshot in YAML or JSON, as returned by
GET /api/connections/{id}/schema.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			fresh, err := loadSnapshot(args[1])
			if err != nil {
				return err
			}

			res := introspect.Preview(current, fresh)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderResult(cmd.OutOrStdout(), res, full)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "all", false, "list unchanged tables and columns too")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reconciled result as JSON")
	return cmd
}

// loadSnapshot decodes a YAML or JSON schema file. JSON is valid YAML, so
// one decoder serves both.
func loadSnapshot(path string) (schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Schema{}, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("read %s", path), err)
	}

	var s schema.Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return schema.Schema{}, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("parse %s", path), err)
	}
	return s, nil
}
