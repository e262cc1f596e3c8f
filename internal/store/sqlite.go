package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"revisionaid/internal/observability"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore keeps everything in a single SQLite file. The pool is limited to
// one connection, so transactions are serialized and a read-modify-write can
// never interleave with another.
type SQLiteStore struct {
	sqlStore
}

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
}

// NewSQLiteStore wraps an open SQLite database and applies the connection pragmas.
func NewSQLiteStore(db *sql.DB, logger *observability.Logger) (*SQLiteStore, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range sqlitePragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	return &SQLiteStore{sqlStore{
		db:     db,
		logger: logger,
		dialect: dialect{
			name:        "sqlite",
			isUnique:    isSQLiteUniqueViolation,
			isTransient: isSQLiteBusy,
		},
	}}, nil
}

func sqliteCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	return sqliteErr.Code(), true
}

func isSQLiteUniqueViolation(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	// primary result code only
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE")
}

func isSQLiteBusy(err error) bool {
	code, ok := sqliteCode(err)
	if !ok {
		return false
	}
	primary := code & 0xff
	return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
}
