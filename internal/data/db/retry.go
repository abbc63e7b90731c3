package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// TxRetryBackoff is the pause before the second attempt; it doubles per attempt.
var TxRetryBackoff = 50 * time.Millisecond

// Transaction runs fn in a transaction, re-running the whole transaction up to
// attempts times when it fails with a transient error. Any other error is
// returned immediately.
func Transaction(ctx context.Context, db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(TxRetryBackoff << (attempt - 1)):
		}
	}
	return err
}

// IsTransient reports whether err is a concurrency or connection failure that a
// fresh transaction may not hit again.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", // serialization_failure
			pgErr.Code == "40P01", // deadlock_detected
			pgErr.Code == "55P03", // lock_not_available
			strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
