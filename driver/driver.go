// Package driver provides thin connection wrappers over the native database
// clients (pgx, go-sql-driver/mysql, modernc sqlite, duckdb, mongo-driver,
// the QLDB driver). Each wrapper exposes a uniform query surface that
// returns driver-neutral records; querying, transactions and pooling remain
// the native client's job.
package driver

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// ErrNoRows is returned by QueryOne when a statement matches no record.
// It aliases database/sql's sentinel so errors.Is works across both.
var ErrNoRows = sql.ErrNoRows

// Rows is a driver-neutral result set: the column list in result order plus
// one value tuple per record.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Driver is the uniform surface shared by the SQL-shaped backends
// (Postgres, MySQL, SQLite, DuckDB, QLDB repositories adapt it for
// PartiQL). Document stores (Mongo) expose their own API instead.
type Driver interface {
	// Query executes a statement expected to return many records.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)

	// QueryOne executes a statement expected to return at most one record
	// and returns its columns and values. ErrNoRows when nothing matches.
	QueryOne(ctx context.Context, query string, args ...any) ([]string, []any, error)

	// Exec executes a statement that returns no records.
	Exec(ctx context.Context, query string, args ...any) error

	// Close releases the underlying connection resources.
	Close() error

	// Placeholder reports the positional parameter style the backend
	// expects, in the form the statement builder consumes.
	Placeholder() sq.PlaceholderFormat
}

// ErrConfig is wrapped by all connection configuration failures.
var ErrConfig = errors.New("driver: invalid configuration")
