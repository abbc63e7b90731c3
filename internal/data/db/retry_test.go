package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"serialization", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "40001"}), true},
		{"connection", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"bad conn", driver.ErrBadConn, true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%s): want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestTransactionRetriesTransientOnly(t *testing.T) {
	db := openSQLite(t)
	TxRetryBackoff = time.Millisecond
	ctx := context.Background()

	calls := 0
	err := Transaction(ctx, db, 3, func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if calls != 3 {
		t.Fatalf("Transaction: calls want=3 got=%d", calls)
	}

	calls = 0
	err = Transaction(ctx, db, 3, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	if err == nil || calls != 3 {
		t.Fatalf("Transaction exhausted: err=%v calls=%d", err, calls)
	}

	calls = 0
	boom := errors.New("boom")
	err = Transaction(ctx, db, 3, func(tx *gorm.DB) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("Transaction non-transient: err=%v calls=%d", err, calls)
	}
}
