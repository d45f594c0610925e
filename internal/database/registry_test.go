package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataquerypro/dataquery/internal/errs"
)

type stubDB struct{ DB }

func TestRegistry_OpenRegistered(t *testing.T) {
	const drv Driver = "stub-open"

	var gotDSN string
	Register(drv, func(_ context.Context, cfg *Config) (DB, error) {
		gotDSN = cfg.DSN
		return stubDB{}, nil
	})

	assert.True(t, Registered(drv))
	assert.Contains(t, Drivers(), string(drv))

	db, err := Open(context.Background(), DefaultConfig(drv, "stub://x"))
	require.NoError(t, err)
	assert.IsType(t, stubDB{}, db)
	assert.Equal(t, "stub://x", gotDSN)
}

func TestRegistry_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), DefaultConfig("oracle", "x"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.False(t, Registered("oracle"))
}

func TestRegistry_NilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestRegistry_OpenerErrorPassesThrough(t *testing.T) {
	const drv Driver = "stub-fail"
	Register(drv, func(context.Context, *Config) (DB, error) {
		return nil, errs.New(errs.ErrKindConnectionFailed, "refused")
	})

	_, err := Open(context.Background(), DefaultConfig(drv, ""))
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestConfig_NamespaceOr(t *testing.T) {
	cfg := DefaultConfig(DriverPostgres, "postgres://localhost/app")
	assert.Equal(t, "public", cfg.NamespaceOr("public"))

	cfg.Namespace = "billing"
	assert.Equal(t, "billing", cfg.NamespaceOr("public"))
}
