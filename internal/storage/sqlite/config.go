// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

import "time"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:bronze.db?_pragma=journal_mode(WAL)"
	//   "bronze.db" (interpreted by the driver)
	DSN string

	// BusyTimeout bounds how long a statement waits on a locked database.
	// Zero means 5s.
	BusyTimeout time.Duration
}

func (c Config) busyTimeout() time.Duration {
	if c.BusyTimeout <= 0 {
		return 5 * time.Second
	}
	return c.BusyTimeout
}
