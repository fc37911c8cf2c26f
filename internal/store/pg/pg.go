// Package pg implements the user and activity stores over PostgreSQL using
// database/sql with the pgx stdlib driver.
package pg

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store holds the shared connection pool. It satisfies both auth.Store and
// activity.Store.
type Store struct {
	db *sql.DB
}

// New constructs a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
