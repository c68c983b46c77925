package db

import (
	"strings"
	"time"
)

const (
	busyRetries   = 5
	busyBaseDelay = 20 * time.Millisecond
)

// isBusy matches the modernc driver's SQLITE_BUSY and SQLITE_LOCKED
// errors, which it only exposes through the message text.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with doubling backoff while the database
// reports it is busy.
func (db *DB) retryOnBusy(fn func() error) error {
	delay := busyBaseDelay
	err := fn()
	for attempt := 0; attempt < busyRetries && isBusy(err); attempt++ {
		db.clock.Sleep(delay)
		delay *= 2
		err = fn()
	}
	return err
}
