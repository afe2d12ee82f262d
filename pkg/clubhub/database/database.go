package database

import (
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fileParams make writers queue on the database lock instead of failing.
// Transactions begin IMMEDIATE so a read-then-write transaction holds the
// write lock from its first statement.
const fileParams = "_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL"

// withFileParams appends fileParams to a file DSN that sets none of them
func withFileParams(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + fileParams
	}
	return dsn + "?" + fileParams
}

// Open initializes a database handle for the given SQLite DSN.
// Constraint violations are translated into gorm.ErrDuplicatedKey so callers
// can tell a lost race from any other failure.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(withFileParams(dsn)), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.New(os.Stderr, "", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
}

// OpenInMemory opens a private in-memory database.
// Every connection to ":memory:" is a separate database, so the pool is
// pinned to a single connection.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
