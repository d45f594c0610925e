package database

import "context"

// DB is the central contract for all introspection work.
// All layers above this package talk only to this interface;
// they never import the driver packages directly.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// ListTables returns all user-defined table names in the configured namespace.
	ListTables(ctx context.Context) ([]string, error)

	// InspectSchema returns the full schema of the database.
	// This is an expensive operation and runs inside a background job.
	InspectSchema(ctx context.Context) (*Schema, error)
}
