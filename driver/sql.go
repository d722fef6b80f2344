package driver

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// sqlConn adapts a database/sql handle to the Driver surface. MySQL, SQLite
// and DuckDB all ride on it; only the registered driver name, the DSN and
// the placeholder style differ.
type sqlConn struct {
	db          *sql.DB
	placeholder sq.PlaceholderFormat
}

func openSQL(driverName, dsn string, placeholder sq.PlaceholderFormat) (*sqlConn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}
	return &sqlConn{db: db, placeholder: placeholder}, nil
}

// Query executes a statement and collects every record.
func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := &Rows{Columns: cols}
	for rows.Next() {
		values, err := scanTuple(rows, len(cols))
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// QueryOne executes a statement and returns the first record, ErrNoRows
// when nothing matches. Extra records are ignored.
func (c *sqlConn) QueryOne(ctx context.Context, query string, args ...any) ([]string, []any, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrNoRows
	}

	values, err := scanTuple(rows, len(cols))
	if err != nil {
		return nil, nil, err
	}
	return cols, values, nil
}

// Exec executes a statement that returns no records.
func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// Begin starts a transaction on the underlying handle.
func (c *sqlConn) Begin(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

// Close closes the database handle.
func (c *sqlConn) Close() error {
	return c.db.Close()
}

// Placeholder reports the backend's positional parameter style.
func (c *sqlConn) Placeholder() sq.PlaceholderFormat {
	return c.placeholder
}

// DB returns the native database/sql handle.
// Use sparingly - prefer the Driver surface.
func (c *sqlConn) DB() *sql.DB {
	return c.db
}

func scanTuple(rows *sql.Rows, n int) ([]any, error) {
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	return values, nil
}
