package schema

import "fmt"

// ChangeSummary counts the diff flags of a reconciled schema. The UI uses it
// to decide whether the user has anything to review.
type ChangeSummary struct {
	NewTables       int `json:"newTables"`
	NewColumns      int `json:"newColumns"`
	ModifiedColumns int `json:"modifiedColumns"`
}

// Summarize counts new tables, new columns and modified columns in s.
// Columns of a new table are not flagged and therefore not counted.
func Summarize(s Schema) ChangeSummary {
	var sum ChangeSummary
	for _, t := range s.Tables {
		if t.IsNew {
			sum.NewTables++
		}
		for _, c := range t.Columns {
			switch {
			case c.IsNew:
				sum.NewColumns++
			case c.IsModified:
				sum.ModifiedColumns++
			}
		}
	}
	return sum
}

// HasChanges reports whether any table or column in s carries a diff flag.
func HasChanges(s Schema) bool {
	return Summarize(s).Total() > 0
}

// Total is the number of flagged items.
func (c ChangeSummary) Total() int {
	return c.NewTables + c.NewColumns + c.ModifiedColumns
}

func (c ChangeSummary) String() string {
	return fmt.Sprintf("%d new tables, %d new columns, %d modified columns",
		c.NewTables, c.NewColumns, c.ModifiedColumns)
}
