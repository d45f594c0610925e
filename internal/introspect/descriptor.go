package introspect

import (
	"strings"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
)

// ConnectionDescriptor identifies a data source to introspect.
type ConnectionDescriptor struct {
	ConnectionID string          `json:"connectionId" yaml:"connectionId"`
	Driver       database.Driver `json:"driver" yaml:"driver"`
	DSN          string          `json:"dsn" yaml:"dsn"`

	// Schema is the namespace to read. Empty uses the driver default.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Validate checks that every required field is set and that the driver is
// registered.
func (d ConnectionDescriptor) Validate() error {
	var missing []string
	if strings.TrimSpace(d.ConnectionID) == "" {
		missing = append(missing, "connectionId")
	}
	if d.Driver == "" {
		missing = append(missing, "driver")
	}
	if strings.TrimSpace(d.DSN) == "" {
		missing = append(missing, "dsn")
	}
	if len(missing) > 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "missing required fields: %s", strings.Join(missing, ", "))
	}

	if strings.ContainsAny(d.ConnectionID, "/\\") {
		return errs.Newf(errs.ErrKindInvalidInput, "invalid connectionId %q", d.ConnectionID)
	}
	if !database.Registered(d.Driver) {
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported driver %q (available: %s)",
			d.Driver, strings.Join(database.Drivers(), ", "))
	}
	return nil
}

// String hides the DSN, which usually carries credentials.
func (d ConnectionDescriptor) String() string {
	return string(d.Driver) + ":" + d.ConnectionID
}
