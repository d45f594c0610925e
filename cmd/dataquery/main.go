// Command dataquery runs the schema sync API and its command line client.
package main

import (
	"fmt"
	"os"

	// Register database drivers
	_ "github.com/dataquerypro/dataquery/internal/database/mssql"
	_ "github.com/dataquerypro/dataquery/internal/database/mysql"
	_ "github.com/dataquerypro/dataquery/internal/database/postgres"
	_ "github.com/dataquerypro/dataquery/internal/database/sqlite"

	// Register baseline storage providers
	_ "github.com/dataquerypro/dataquery/internal/filestore/memory"
	_ "github.com/dataquerypro/dataquery/internal/filestore/minio"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
