package driver

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/caarlos0/env/v10"
	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
)

// DuckDBConfig holds DuckDB connection parameters. The URL is a database
// file path; empty opens an in-memory database.
type DuckDBConfig struct {
	URL string `env:"DATABASE_URL"`
}

// DuckDBConfigFromEnv loads connection parameters from the environment.
func DuckDBConfigFromEnv() (DuckDBConfig, error) {
	var cfg DuckDBConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

// DuckDB wraps an in-process DuckDB database handle.
type DuckDB struct {
	*sqlConn
}

// NewDuckDB opens a DuckDB database. An empty URL opens an in-memory
// database.
func NewDuckDB(cfg DuckDBConfig) (*DuckDB, error) {
	conn, err := openSQL("duckdb", cfg.URL, sq.Question)
	if err != nil {
		return nil, err
	}
	return &DuckDB{sqlConn: conn}, nil
}

// NewDuckDBFromEnv opens a DuckDB database using environment-provided
// parameters.
func NewDuckDBFromEnv() (*DuckDB, error) {
	cfg, err := DuckDBConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewDuckDB(cfg)
}
