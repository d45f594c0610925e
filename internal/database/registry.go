package database

import (
	"context"
	"sort"
	"sync"

	"github.com/dataquerypro/dataquery/internal/errs"
)

// Opener connects to a database of one engine.
type Opener func(ctx context.Context, cfg *Config) (DB, error)

var (
	registryMu sync.RWMutex
	registry   = map[Driver]Opener{}
)

// Register makes a driver available to Open. Driver packages call it from
// init, so importing a driver package is enough to enable it.
func Register(driver Driver, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[driver] = open
}

// Registered reports whether a driver has been registered.
func Registered(driver Driver) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[driver]
	return ok
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for d := range registry {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}

// Open connects using the driver named in cfg.
func Open(ctx context.Context, cfg *Config) (DB, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "missing database config")
	}

	registryMu.RLock()
	open, ok := registry[cfg.Driver]
	registryMu.RUnlock()

	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
	return open(ctx, cfg)
}
