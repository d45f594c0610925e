package schema

// Column describes one database column as known to the application.
//
// Type, Nullable, PrimaryKey and ForeignKey are structural: they mirror the
// database definition and are refreshed on every introspection. Description,
// AIDescription and Hidden are annotations authored by users or the AI layer
// and survive reconciliation.
type Column struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	PrimaryKey bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	ForeignKey string `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"` // "table.column", "" when none

	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	AIDescription string `json:"aiDescription,omitempty" yaml:"aiDescription,omitempty"`
	Hidden        bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// Set only on reconciliation output. Never both true.
	IsNew      bool `json:"isNew,omitempty" yaml:"isNew,omitempty"`
	IsModified bool `json:"isModified,omitempty" yaml:"isModified,omitempty"`
}

// Table is a named collection of columns in introspection order.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`

	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	AIDescription string `json:"aiDescription,omitempty" yaml:"aiDescription,omitempty"`
	Hidden        bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	IsNew bool `json:"isNew,omitempty" yaml:"isNew,omitempty"`
}

// Schema is the full picture of one connection.
type Schema struct {
	ConnectionID string  `json:"connectionId" yaml:"connectionId"`
	Tables       []Table `json:"tables" yaml:"tables"`
}

// Table returns the table with the given name.
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Clone returns a deep copy of s.
func (s Schema) Clone() Schema {
	out := Schema{ConnectionID: s.ConnectionID}
	if s.Tables != nil {
		out.Tables = make([]Table, len(s.Tables))
		for i, t := range s.Tables {
			out.Tables[i] = t.clone()
		}
	}
	return out
}

// Accepted returns a copy of s with every diff flag cleared. This is the form
// stored as a connection's baseline once the user confirms the changes.
func (s Schema) Accepted() Schema {
	out := s.Clone()
	for i := range out.Tables {
		out.Tables[i].IsNew = false
		for j := range out.Tables[i].Columns {
			out.Tables[i].Columns[j].IsNew = false
			out.Tables[i].Columns[j].IsModified = false
		}
	}
	return out
}

func (t Table) clone() Table {
	out := t
	if t.Columns != nil {
		out.Columns = make([]Column, len(t.Columns))
		copy(out.Columns, t.Columns)
	}
	return out
}
