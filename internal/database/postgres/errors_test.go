package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dataquerypro/dataquery/internal/database"
	"github.com/dataquerypro/dataquery/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"no rows", pgx.ErrNoRows, errs.ErrKindNotFound},
		{"bad password", &pgconn.PgError{Code: pgErrInvalidPassword}, errs.ErrKindPermissionDenied},
		{"no privilege", &pgconn.PgError{Code: pgErrInsufficientPrivs}, errs.ErrKindPermissionDenied},
		{"unknown database", &pgconn.PgError{Code: pgErrInvalidCatalogName}, errs.ErrKindNotFound},
		{"connection class", &pgconn.PgError{Code: "08006"}, errs.ErrKindConnectionFailed},
		{"statement timeout", &pgconn.PgError{Code: pgErrQueryCanceled}, errs.ErrKindTimeout},
		{"undefined table", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, errs.ErrKindQueryFailed},
		{"network", errors.New("dial tcp: connection refused"), errs.ErrKindConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "op failed")
			assert.Equal(t, tt.want, errs.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, mapError(nil, "unused"))
}

func TestBuildPool_InvalidDSN(t *testing.T) {
	_, err := buildPool(context.Background(), database.DefaultConfig(database.DriverPostgres, "postgres://%zz"))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestRegistered(t *testing.T) {
	assert.True(t, database.Registered(database.DriverPostgres))
}
