package database

import (
	"database/sql"
	"time"
)

// ConfigurePool applies the pool settings of cfg to a database/sql handle.
// Zero values leave the database/sql defaults in place.
func ConfigurePool(db *sql.DB, cfg *Config) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}
}

// ConnectTimeout returns the ping deadline for cfg.
func ConnectTimeout(cfg *Config) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return 10 * time.Second
}
