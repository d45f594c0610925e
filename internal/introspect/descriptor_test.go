package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
)

func TestConnectionDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    ConnectionDescriptor
		wantErr string
	}{
		{"valid", ConnectionDescriptor{ConnectionID: "c1", Driver: database.DriverSQLite, DSN: ":memory:"}, ""},
		{"all missing", ConnectionDescriptor{}, "connectionId, driver, dsn"},
		{"blank dsn", ConnectionDescriptor{ConnectionID: "c1", Driver: database.DriverSQLite, DSN: "  "}, "dsn"},
		{"unknown driver", ConnectionDescriptor{ConnectionID: "c1", Driver: "oracle", DSN: "x"}, `unsupported driver "oracle"`},
		{"slash in id", ConnectionDescriptor{ConnectionID: "a/b", Driver: database.DriverSQLite, DSN: "x"}, "invalid connectionId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errs.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnectionDescriptor_StringHidesDSN(t *testing.T) {
	d := ConnectionDescriptor{ConnectionID: "crm", Driver: database.DriverPostgres, DSN: "postgres://u:secret@h/db"}
	assert.Equal(t, "postgres:crm", d.String())
	assert.NotContains(t, d.String(), "secret")
}
