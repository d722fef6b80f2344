package driver

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/caarlos0/env/v10"
	"github.com/go-sql-driver/mysql"
)

// MySQLConfig holds MySQL connection parameters. A full DSN wins over the
// discrete fields.
type MySQLConfig struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DATABASE_USER"`
	Password string `env:"DATABASE_PASSWORD"`
	Host     string `env:"DATABASE_HOST" envDefault:"localhost"`
	Port     string `env:"DATABASE_PORT" envDefault:"3306"`
	Name     string `env:"DATABASE_NAME"`
}

// MySQLConfigFromEnv loads connection parameters from the environment.
func MySQLConfigFromEnv() (MySQLConfig, error) {
	var cfg MySQLConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

func (c MySQLConfig) dsn() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.User == "" {
		return "", fmt.Errorf("%w: no user detected", ErrConfig)
	}

	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Host + ":" + c.Port
	mc.DBName = c.Name
	// Timestamps must come back as time.Time, not []byte, for the entity
	// mapper's coercion rules.
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

// MySQL wraps a go-sql-driver/mysql database handle.
type MySQL struct {
	*sqlConn
}

// NewMySQL connects to MySQL and verifies the connection.
func NewMySQL(cfg MySQLConfig) (*MySQL, error) {
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	conn, err := openSQL("mysql", dsn, sq.Question)
	if err != nil {
		return nil, err
	}
	return &MySQL{sqlConn: conn}, nil
}

// NewMySQLFromEnv connects using environment-provided parameters.
func NewMySQLFromEnv() (*MySQL, error) {
	cfg, err := MySQLConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewMySQL(cfg)
}
