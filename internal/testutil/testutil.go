package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/SAP-F-2025/generic-repository/internal/models"
)

// Logger returns a logger that discards everything
func Logger(tb testing.TB) *slog.Logger {
	tb.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DB opens a fresh sqlite database in the test's temp dir with every model migrated.
// The connection pool is closed when the test ends.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := filepath.Join(tb.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}

	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CountStatements registers callbacks that count every statement gorm executes
// against db from now on.
func CountStatements(tb testing.TB, db *gorm.DB) *int {
	tb.Helper()

	count := new(int)
	inc := func(*gorm.DB) { *count++ }
	name := "testutil:count:" + tb.Name()

	mustRegister(tb, db.Callback().Create().Before("gorm:create").Register(name, inc))
	mustRegister(tb, db.Callback().Query().Before("gorm:query").Register(name, inc))
	mustRegister(tb, db.Callback().Update().Before("gorm:update").Register(name, inc))
	mustRegister(tb, db.Callback().Delete().Before("gorm:delete").Register(name, inc))
	mustRegister(tb, db.Callback().Row().Before("gorm:row").Register(name, inc))
	return count
}

func mustRegister(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("failed to register callback: %v", err)
	}
}
