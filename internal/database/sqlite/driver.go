// Package sqlite implements database.DB for SQLite files using the pure-Go
// modernc.org/sqlite driver. Catalog data comes from PRAGMA statements.
package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // register "sqlite" with database/sql

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
)

const defaultNamespace = "main"

func init() {
	database.Register(database.DriverSQLite, func(ctx context.Context, cfg *database.Config) (database.DB, error) {
		return New(ctx, cfg)
	})
}

// Driver is a SQLite implementation of database.DB.
type Driver struct {
	db     *sql.DB
	schema string
}

// New opens the database file named by cfg.DSN. The pool is capped at one
// connection so that ":memory:" databases stay visible to every query.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	dsn := normalizeDSN(cfg.DSN)
	if dsn == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sqlite DSN is empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid sqlite DSN", err)
	}
	database.ConfigurePool(db, cfg)
	db.SetMaxOpenConns(1)

	d := &Driver{db: db, schema: cfg.NamespaceOr(defaultNamespace)}

	pingCtx, cancel := context.WithTimeout(ctx, database.ConnectTimeout(cfg))
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	if strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "?") {
		return strings.TrimPrefix(dsn, "file:")
	}
	return dsn
}

// DB exposes the underlying handle, mainly for seeding test fixtures.
func (d *Driver) DB() *sql.DB { return d.db }

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

// ListTables returns user tables, skipping SQLite's internal sqlite_* tables.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	q := `SELECT name FROM ` + quoteIdent(d.schema) + `.sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

func (d *Driver) InspectSchema(ctx context.Context) (*database.Schema, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	schema := &database.Schema{
		Tables: make([]*database.TableInfo, 0, len(tables)),
	}
	for _, tableName := range tables {
		info, err := d.inspectTable(ctx, tableName)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), "inspecting table "+tableName, err)
		}
		schema.Tables = append(schema.Tables, info)
	}
	return schema, nil
}

func (d *Driver) inspectTable(ctx context.Context, table string) (*database.TableInfo, error) {
	columns, pks, err := d.fetchColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	fks, err := d.fetchForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}

	return &database.TableInfo{
		Name:        table,
		Columns:     columns,
		PrimaryKey:  pks,
		ForeignKeys: fks,
	}, nil
}

// fetchColumns runs PRAGMA table_info. The pk column holds the 1-based
// position of the column within the primary key, or 0.
func (d *Driver) fetchColumns(ctx context.Context, table string) ([]*database.ColumnInfo, []string, error) {
	q := `PRAGMA ` + quoteIdent(d.schema) + `.table_info(` + quoteIdent(table) + `)`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	type pkCol struct {
		name string
		pos  int
	}
	var (
		cols  []*database.ColumnInfo
		pkSeq []pkCol
	)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, nil, mapError(err, "failed to scan column info")
		}
		c := &database.ColumnInfo{
			Name:      name,
			DataType:  colType,
			Nullable:  notNull == 0 && pk == 0,
			IsPrimary: pk > 0,
		}
		if dfltValue.Valid {
			v := dfltValue.String
			c.Default = &v
		}
		if pk > 0 {
			pkSeq = append(pkSeq, pkCol{name: name, pos: pk})
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mapError(err, "error iterating columns")
	}

	sort.Slice(pkSeq, func(i, j int) bool { return pkSeq[i].pos < pkSeq[j].pos })
	pks := make([]string, 0, len(pkSeq))
	for _, p := range pkSeq {
		pks = append(pks, p.name)
	}
	return cols, pks, nil
}

// fetchForeignKeys runs PRAGMA foreign_key_list. A reference without an
// explicit target column points at the parent's primary key; it is resolved
// here so every key has a RefColumn.
func (d *Driver) fetchForeignKeys(ctx context.Context, table string) ([]*database.ForeignKey, error) {
	q := `PRAGMA ` + quoteIdent(d.schema) + `.foreign_key_list(` + quoteIdent(table) + `)`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}

	type fkRow struct {
		id, seq  int
		refTable string
		from     string
		to       sql.NullString
	}
	var list []fkRow
	for rows.Next() {
		var (
			r                         fkRow
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&r.id, &r.seq, &r.refTable, &r.from, &r.to, &onUpdate, &onDelete, &match); err != nil {
			rows.Close()
			return nil, mapError(err, "failed to scan foreign key")
		}
		list = append(list, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}

	// PRAGMA foreign_key_list lists constraints newest first.
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].id != list[j].id {
			return list[i].id > list[j].id
		}
		return list[i].seq < list[j].seq
	})

	fks := make([]*database.ForeignKey, 0, len(list))
	for _, r := range list {
		fk := &database.ForeignKey{Column: r.from, RefTable: r.refTable, RefColumn: r.to.String}
		if !r.to.Valid || r.to.String == "" {
			_, parentPKs, err := d.fetchColumns(ctx, r.refTable)
			if err != nil {
				return nil, err
			}
			if r.seq < len(parentPKs) {
				fk.RefColumn = parentPKs[r.seq]
			}
		}
		fks = append(fks, fk)
	}
	return fks, nil
}

// quoteIdent wraps an identifier in double quotes, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
