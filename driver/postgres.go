package driver

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds Postgres connection parameters. A full URL wins over
// the discrete fields.
type PostgresConfig struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DATABASE_USER"`
	Password string `env:"DATABASE_PASSWORD"`
	Host     string `env:"DATABASE_HOST" envDefault:"localhost"`
	Port     string `env:"DATABASE_PORT" envDefault:"5432"`
	Name     string `env:"DATABASE_NAME" envDefault:"postgres"`
}

// PostgresConfigFromEnv loads connection parameters from the environment.
func PostgresConfigFromEnv() (PostgresConfig, error) {
	var cfg PostgresConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

func (c PostgresConfig) connString() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.User == "" {
		return "", fmt.Errorf("%w: no user detected", ErrConfig)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, c.Name), nil
}

// Postgres wraps a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to Postgres with a pgx pool and verifies the
// connection.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	connString, err := cfg.connString()
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	// Connection pool settings
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// NewPostgresFromEnv connects using environment-provided parameters.
func NewPostgresFromEnv(ctx context.Context) (*Postgres, error) {
	cfg, err := PostgresConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewPostgres(ctx, cfg)
}

// Query executes a statement and collects every record.
func (p *Postgres) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f.Name)
	}

	out := &Rows{Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// QueryOne executes a statement and returns the first record, ErrNoRows
// when nothing matches.
func (p *Postgres) QueryOne(ctx context.Context, query string, args ...any) ([]string, []any, error) {
	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	if len(rows.Values) == 0 {
		return nil, nil, ErrNoRows
	}
	return rows.Columns, rows.Values[0], nil
}

// Exec executes a statement that returns no records.
func (p *Postgres) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// Begin starts a transaction on the pool.
func (p *Postgres) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Placeholder reports the dollar-numbered parameter style.
func (p *Postgres) Placeholder() sq.PlaceholderFormat {
	return sq.Dollar
}

// Pool returns the underlying pgx pool.
// Use sparingly - prefer the Driver surface.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}
