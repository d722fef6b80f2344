package driver

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/caarlos0/env/v10"
	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" driver
)

// SQLiteConfig holds SQLite connection parameters. The URL is a file path,
// or ":memory:" for an in-memory database.
type SQLiteConfig struct {
	URL string `env:"DATABASE_URL" envDefault:":memory:"`
}

// SQLiteConfigFromEnv loads connection parameters from the environment.
func SQLiteConfigFromEnv() (SQLiteConfig, error) {
	var cfg SQLiteConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

// SQLite wraps a modernc.org/sqlite database handle.
type SQLite struct {
	*sqlConn
	url string
}

// NewSQLite opens a SQLite database. An empty URL opens an in-memory
// database.
func NewSQLite(cfg SQLiteConfig) (*SQLite, error) {
	url := cfg.URL
	if url == "" {
		url = ":memory:"
	}

	conn, err := openSQL("sqlite", url, sq.Question)
	if err != nil {
		return nil, err
	}
	return &SQLite{sqlConn: conn, url: url}, nil
}

// NewSQLiteFromEnv opens a SQLite database using environment-provided
// parameters.
func NewSQLiteFromEnv() (*SQLite, error) {
	cfg, err := SQLiteConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLite(cfg)
}

func (s *SQLite) String() string {
	return fmt.Sprintf("SQLite(%s)", s.url)
}
