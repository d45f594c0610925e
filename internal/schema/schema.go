// Package schema holds the schema snapshot model and the drift reconciler.
//
// A snapshot is what an introspector reads from a database catalog. The
// reconciler merges a fresh snapshot into the stored baseline of the same
// connection: every table and column is classified as new, modified or
// unchanged, user annotations are carried over from the baseline, and objects
// that no longer exist in the database are dropped.
//
// Everything here is pure: functions only read their arguments and are safe
// to call from any goroutine.
package schema

// ReconcileColumns merges the fresh column list of one table into the old one.
//
// Output order is the order of fresh. A column missing from old is emitted as
// is with IsNew set. A column present in both starts from the old copy, so
// annotations are preserved, and takes its structural fields from the fresh
// copy; IsModified reports whether any structural field differs. Columns
// that exist only in old are dropped.
func ReconcileColumns(old, fresh []Column) []Column {
	byName := make(map[string]Column, len(old))
	for _, c := range old {
		byName[c.Name] = c
	}

	out := make([]Column, 0, len(fresh))
	for _, fc := range fresh {
		oc, ok := byName[fc.Name]
		if !ok {
			fc.IsNew = true
			fc.IsModified = false
			out = append(out, fc)
			continue
		}

		merged := oc
		merged.Type = fc.Type
		merged.Nullable = fc.Nullable
		merged.PrimaryKey = fc.PrimaryKey
		merged.ForeignKey = fc.ForeignKey
		merged.IsNew = false
		merged.IsModified = ColumnChanged(oc, fc)
		out = append(out, merged)
	}
	return out
}

// ColumnChanged reports whether the structural fields of two versions of a
// column differ. Annotations are ignored. An empty foreign key and a missing
// one are the same thing.
func ColumnChanged(old, fresh Column) bool {
	return old.Type != fresh.Type ||
		old.Nullable != fresh.Nullable ||
		old.PrimaryKey != fresh.PrimaryKey ||
		old.ForeignKey != fresh.ForeignKey
}

// ReconcileSchema merges a freshly introspected schema into the current
// baseline and returns the reconciled schema.
//
// Tables follow the order of fresh. A table missing from current is emitted
// with IsNew set; its columns are copied without being diffed and carry no
// column-level flags. A table present in both keeps the baseline's table
// annotations and gets its columns from ReconcileColumns. Tables that exist
// only in current are dropped: the result describes what the data source has
// now.
func ReconcileSchema(current, fresh Schema) Schema {
	byName := make(map[string]Table, len(current.Tables))
	for _, t := range current.Tables {
		byName[t.Name] = t
	}

	out := Schema{
		ConnectionID: fresh.ConnectionID,
		Tables:       make([]Table, 0, len(fresh.Tables)),
	}
	if out.ConnectionID == "" {
		out.ConnectionID = current.ConnectionID
	}

	for _, ft := range fresh.Tables {
		ct, ok := byName[ft.Name]
		if !ok {
			nt := ft.clone()
			nt.IsNew = true
			out.Tables = append(out.Tables, nt)
			continue
		}

		merged := ct
		merged.Columns = ReconcileColumns(ct.Columns, ft.Columns)
		merged.IsNew = false
		out.Tables = append(out.Tables, merged)
	}
	return out
}
