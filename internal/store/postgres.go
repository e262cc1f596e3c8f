package store

import (
	"database/sql"
	"errors"

	"revisionaid/internal/observability"

	"github.com/lib/pq"
)

// PostgreSQL error codes the store reacts to.
const (
	pgUniqueViolation      pq.ErrorCode = "23505"
	pgSerializationFailure pq.ErrorCode = "40001"
	pgDeadlockDetected     pq.ErrorCode = "40P01"
)

// PostgresStore is the production Store. Row locks come from SELECT ... FOR UPDATE.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore wraps an open PostgreSQL pool.
func NewPostgresStore(db *sql.DB, logger *observability.Logger) *PostgresStore {
	return &PostgresStore{sqlStore{
		db:     db,
		logger: logger,
		dialect: dialect{
			name:         "postgres",
			lockClause:   " FOR UPDATE",
			dollarParams: true,
			isUnique:     isPostgresUniqueViolation,
			isTransient:  isPostgresTransient,
		},
	}}
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func isPostgresTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pgSerializationFailure || pqErr.Code == pgDeadlockDetected
}
