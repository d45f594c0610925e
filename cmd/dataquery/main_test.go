package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataquerypro/dataquery/internal/config"
	"github.com/dataquerypro/dataquery/internal/errs"
	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/jobs"
	"github.com/dataquerypro/dataquery/internal/logger"
	"github.com/dataquerypro/dataquery/internal/poller"
	"github.com/dataquerypro/dataquery/internal/schema"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const storedYAML = `connectionId: shop
tables:
  - name: customers
    description: people who buy things
    columns:
      - name: id
        type: integer
        nullable: false
        primary_key: true
      - name: email
        type: varchar(100)
        nullable: false
`

const freshJSON = `{
  "connectionId": "shop",
  "tables": [
    {"name": "customers", "columns": [
      {"name": "id", "type": "integer", "nullable": false, "primary_key": true},
      {"name": "email", "type": "varchar(255)", "nullable": false},
      {"name": "phone", "type": "text", "nullable": true}
    ]},
    {"name": "orders", "columns": [
      {"name": "id", "type": "integer", "nullable": false, "primary_key": true},
      {"name": "customer_id", "type": "integer", "nullable": false, "foreign_key": "customers.id"}
    ]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadSnapshot(t *testing.T) {
	s, err := loadSnapshot(writeFile(t, "stored.yaml", storedYAML))
	require.NoError(t, err)
	assert.Equal(t, "shop", s.ConnectionID)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "people who buy things", s.Tables[0].Description)
	assert.True(t, s.Tables[0].Columns[0].PrimaryKey)

	s, err = loadSnapshot(writeFile(t, "fresh.json", freshJSON))
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)
	assert.Equal(t, "customers.id", s.Tables[1].Columns[1].ForeignKey)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	_, err := loadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errs.IsNotFound(err))

	_, err = loadSnapshot(writeFile(t, "bad.yaml", "tables: [unclosed"))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDiffCommand(t *testing.T) {
	stored := writeFile(t, "stored.yaml", storedYAML)
	fresh := writeFile(t, "fresh.json", freshJSON)

	out, err := run(t, "diff", stored, fresh)
	require.NoError(t, err)

	want := `shop: 1 new tables, 1 new columns, 1 modified columns
~ customers
    ~ email varchar(255) not null
    + phone text null
+ orders (new table)
    id integer not null pk
    customer_id integer not null -> customers.id
`
	assert.Equal(t, want, out)
}

func TestDiffCommand_JSON(t *testing.T) {
	stored := writeFile(t, "stored.yaml", storedYAML)
	fresh := writeFile(t, "fresh.json", freshJSON)

	out, err := run(t, "diff", "--json", stored, fresh)
	require.NoError(t, err)

	var res introspect.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.HasChanges)
	assert.Equal(t, schema.ChangeSummary{NewTables: 1, NewColumns: 1, ModifiedColumns: 1}, res.Summary)

	customers, ok := res.Schema.Table("customers")
	require.True(t, ok)
	assert.Equal(t, "people who buy things", customers.Description)
}

func TestDiffCommand_NoChanges(t *testing.T) {
	stored := writeFile(t, "stored.yaml", storedYAML)

	out, err := run(t, "diff", stored, stored)
	require.NoError(t, err)
	assert.Equal(t, "shop: 0 new tables, 0 new columns, 0 modified columns\nno changes\n", out)
}

func TestDiffCommand_Args(t *testing.T) {
	_, err := run(t, "diff", "only-one.yaml")
	assert.Error(t, err)
}

func TestRenderResult_Full(t *testing.T) {
	res := introspect.Preview(
		schema.Schema{ConnectionID: "c", Tables: []schema.Table{{Name: "t", Columns: []schema.Column{{Name: "a", Type: "int"}}}}},
		schema.Schema{ConnectionID: "c", Tables: []schema.Table{{Name: "t", Columns: []schema.Column{{Name: "a", Type: "int"}}}}},
	)

	var buf bytes.Buffer
	renderResult(&buf, res, true)
	assert.Equal(t, "c: 0 new tables, 0 new columns, 0 modified columns\n  t\n      a int not null\n", buf.String())
}

func TestDecodeResult(t *testing.T) {
	in := introspect.Result{HasChanges: true, Summary: schema.ChangeSummary{NewTables: 2}}

	got, err := decodeResult(in)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got, err = decodeResult(json.RawMessage(`{"schema":{"connectionId":"x","tables":[]},"summary":{"newTables":2,"newColumns":0,"modifiedColumns":0},"hasChanges":true}`))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Summary.NewTables)
	assert.Equal(t, "x", got.Schema.ConnectionID)

	_, err = decodeResult(42)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dataquery dev")
}

func TestIntrospectCommand_Local(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "local.db")
	// sqlite creates the file; an empty database has no tables
	out, err := run(t, "introspect", "--driver", "sqlite", "--dsn", dsn, "--connection", "local")
	require.NoError(t, err)
	assert.Contains(t, out, "local: 0 new tables, 0 new columns, 0 modified columns")
}

func TestIntrospectCommand_Invalid(t *testing.T) {
	_, err := run(t, "introspect", "--driver", "oracle", "--dsn", "x", "--connection", "c")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestWait_FailedJobWithoutMessage(t *testing.T) {
	a := &app{
		cfg: &config.Config{Jobs: config.JobsConfig{PollInterval: time.Millisecond}},
		log: logger.Nop(),
	}
	calls := 0
	f := poller.FetcherFunc(func(context.Context, string) (jobs.Snapshot, error) {
		calls++
		if calls == 1 {
			return jobs.Snapshot{Status: jobs.StatusProcessing, Progress: 10, Message: "Connecting to sqlite database..."}, nil
		}
		return jobs.Snapshot{Status: jobs.StatusError}, nil
	})

	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)

	_, err := a.wait(context.Background(), cmd, f, "job-1")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.NotContains(t, err.Error(), "unexpected job result")
	assert.Equal(t, "[ 10%] Connecting to sqlite database...\n", stderr.String())
}
