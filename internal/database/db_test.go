package database

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestGormLoggerReportsFailedQueries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	db, err := Open(Config{
		Driver: "sqlite",
		DSN:    MemoryDSN(uuid.NewString()),
		Logger: zap.New(core),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	if err := db.Exec("SELECT * FROM missing_table").Error; err == nil {
		t.Fatal("expected query against a missing table to fail")
	}

	if recorded.FilterMessage("query failed").Len() != 1 {
		t.Fatalf("expected one failed-query entry, got %d", recorded.Len())
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: MemoryDSN(uuid.NewString()), MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
