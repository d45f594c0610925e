package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dataquerypro/dataquery/internal/introspect"
	"github.com/dataquerypro/dataquery/internal/schema"
)

var (
	headerFmt   = color.New(color.Bold).SprintfFunc()
	newFmt      = color.New(color.FgGreen).SprintfFunc()
	modifiedFmt = color.New(color.FgYellow).SprintfFunc()
	plainFmt    = color.New(color.Faint).SprintfFunc()
)

// renderResult prints a reconciled schema as a change list. Unchanged
// tables and columns are only listed when full is set.
func renderResult(w io.Writer, res introspect.Result, full bool) {
	fmt.Fprintln(w, headerFmt("%s: %s", connectionLabel(res.Schema), res.Summary))
	if !res.HasChanges && !full {
		fmt.Fprintln(w, "no changes")
		return
	}

	for _, t := range res.Schema.Tables {
		switch {
		case t.IsNew:
			fmt.Fprintln(w, newFmt("+ %s (new table)", t.Name))
			for _, c := range t.Columns {
				fmt.Fprintln(w, newFmt("    %s", describeColumn(c)))
			}
		case tableChanged(t):
			fmt.Fprintln(w, modifiedFmt("~ %s", t.Name))
			renderColumns(w, t.Columns, full)
		case full:
			fmt.Fprintln(w, plainFmt("  %s", t.Name))
			renderColumns(w, t.Columns, full)
		}
	}
}

func renderColumns(w io.Writer, cols []schema.Column, full bool) {
	for _, c := range cols {
		switch {
		case c.IsNew:
			fmt.Fprintln(w, newFmt("    + %s", describeColumn(c)))
		case c.IsModified:
			fmt.Fprintln(w, modifiedFmt("    ~ %s", describeColumn(c)))
		case full:
			fmt.Fprintln(w, plainFmt("      %s", describeColumn(c)))
		}
	}
}

func tableChanged(t schema.Table) bool {
	for _, c := range t.Columns {
		if c.IsNew || c.IsModified {
			return true
		}
	}
	return false
}

// describeColumn renders "name TYPE [not] null [pk] [-> table.column]".
func describeColumn(c schema.Column) string {
	parts := []string{c.Name, c.Type}
	if c.Nullable {
		parts = append(parts, "null")
	} else {
		parts = append(parts, "not null")
	}
	if c.PrimaryKey {
		parts = append(parts, "pk")
	}
	if c.ForeignKey != "" {
		parts = append(parts, "-> "+c.ForeignKey)
	}
	return strings.Join(parts, " ")
}

func connectionLabel(s schema.Schema) string {
	if s.ConnectionID == "" {
		return "schema"
	}
	return s.ConnectionID
}
