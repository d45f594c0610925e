package database

import "github.com/dataquerypro/dataquery/internal/schema"

// ColumnInfo describes a single column as read from the catalog.
type ColumnInfo struct {
	Name      string
	DataType  string
	Nullable  bool
	Default   *string // nil if no default
	IsPrimary bool
	IsUnique  bool
}

// ForeignKey describes one referencing column of a table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableInfo describes a table and its columns in ordinal order.
type TableInfo struct {
	Name        string
	Columns     []*ColumnInfo
	PrimaryKey  []string
	ForeignKeys []*ForeignKey
}

// Schema is the raw result of InspectSchema. Tables keep the order in which
// the driver listed them.
type Schema struct {
	Tables []*TableInfo
}

// Snapshot converts the catalog read into the snapshot model consumed by the
// reconciler. A column's foreign key becomes "ref_table.ref_column"; when a
// column references several targets the first one listed wins.
func (s *Schema) Snapshot(connectionID string) schema.Schema {
	out := schema.Schema{
		ConnectionID: connectionID,
		Tables:       make([]schema.Table, 0, len(s.Tables)),
	}

	for _, t := range s.Tables {
		fks := make(map[string]string, len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			if _, seen := fks[fk.Column]; !seen {
				fks[fk.Column] = fk.RefTable + "." + fk.RefColumn
			}
		}
		pks := toSet(t.PrimaryKey)

		tbl := schema.Table{
			Name:    t.Name,
			Columns: make([]schema.Column, 0, len(t.Columns)),
		}
		for _, c := range t.Columns {
			tbl.Columns = append(tbl.Columns, schema.Column{
				Name:       c.Name,
				Type:       c.DataType,
				Nullable:   c.Nullable,
				PrimaryKey: c.IsPrimary || pks[c.Name],
				ForeignKey: fks[c.Name],
			})
		}
		out.Tables = append(out.Tables, tbl)
	}
	return out
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
