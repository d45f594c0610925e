package mysql

import (
	"context"
	"database/sql"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
)

// buildPool parses the DSN, forces parseTime and opens a pooled *sql.DB.
func buildPool(cfg *database.Config) (*sql.DB, string, error) {
	mc, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}
	mc.ParseTime = true
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}

	connector, err := gomysql.NewConnector(mc)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql config", err)
	}

	db := sql.OpenDB(connector)
	database.ConfigurePool(db, cfg)

	return db, cfg.NamespaceOr(mc.DBName), nil
}

// currentDatabase resolves DATABASE() when the DSN names no database.
func currentDatabase(ctx context.Context, db *sql.DB) (string, error) {
	var name sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil {
		return "", mapError(err, "failed to resolve current database")
	}
	if !name.Valid || name.String == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "no database selected: set one in the DSN or the namespace")
	}
	return name.String, nil
}
