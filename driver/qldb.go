package driver

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/amzn/ion-go/ion"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/qldbsession"
	"github.com/awslabs/amazon-qldb-driver-go/v3/qldbdriver"
	"github.com/caarlos0/env/v10"
)

// QLDBConfig holds Amazon QLDB connection parameters. Credentials fall
// back to the AWS SDK's default chain when the static keys are unset.
type QLDBConfig struct {
	Ledger          string `env:"DATABASE_NAME"`
	Retry           int    `env:"QLDB_RETRY_CONF" envDefault:"4"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_DEFAULT_REGION"`
}

// QLDBConfigFromEnv loads connection parameters from the environment.
func QLDBConfigFromEnv() (QLDBConfig, error) {
	var cfg QLDBConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

// QLDB wraps the Amazon QLDB ledger driver. Statements are PartiQL;
// documents come back as ion values decoded into maps. The ledger owns
// transaction retries, configured through QLDB_RETRY_CONF.
type QLDB struct {
	driver *qldbdriver.QLDBDriver
	ledger string
}

// NewQLDB builds a QLDB session over aws-sdk-go-v2 and connects the ledger
// driver.
func NewQLDB(ctx context.Context, cfg QLDBConfig) (*QLDB, error) {
	if cfg.Ledger == "" {
		return nil, fmt.Errorf("%w: no ledger name detected", ErrConfig)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	session := qldbsession.NewFromConfig(awsCfg)

	drv, err := qldbdriver.New(cfg.Ledger, session, func(opts *qldbdriver.DriverOptions) {
		if cfg.Retry > 0 {
			opts.RetryPolicy.MaxRetryLimit = cfg.Retry
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create QLDB driver: %w", err)
	}

	return &QLDB{driver: drv, ledger: cfg.Ledger}, nil
}

// NewQLDBFromEnv connects using environment-provided parameters.
func NewQLDBFromEnv(ctx context.Context) (*QLDB, error) {
	cfg, err := QLDBConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewQLDB(ctx, cfg)
}

// QueryDocs executes a PartiQL statement inside a ledger transaction and
// returns every resulting document.
func (q *QLDB) QueryDocs(ctx context.Context, statement string, args ...any) ([]map[string]any, error) {
	out, err := q.driver.Execute(ctx, func(txn qldbdriver.Transaction) (any, error) {
		res, err := txn.Execute(statement, args...)
		if err != nil {
			return nil, err
		}

		var docs []map[string]any
		for res.Next(txn) {
			var doc map[string]any
			if err := ion.Unmarshal(res.GetCurrentData(), &doc); err != nil {
				return nil, fmt.Errorf("failed to decode ion document: %w", err)
			}
			docs = append(docs, doc)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return docs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return out.([]map[string]any), nil
}

// QueryOneDoc executes a PartiQL statement and returns the first document,
// ErrNoRows when nothing matches.
func (q *QLDB) QueryOneDoc(ctx context.Context, statement string, args ...any) (map[string]any, error) {
	docs, err := q.QueryDocs(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoRows
	}
	return docs[0], nil
}

// Query adapts QueryDocs to the tuple-shaped Driver surface. Ledger
// documents are schemaless, so the column list is the union of the first
// document's keys; repositories built on QLDB prefer the document calls.
func (q *QLDB) Query(ctx context.Context, statement string, args ...any) (*Rows, error) {
	docs, err := q.QueryDocs(ctx, statement, args...)
	if err != nil {
		return nil, err
	}

	out := &Rows{}
	if len(docs) == 0 {
		return out, nil
	}
	for k := range docs[0] {
		out.Columns = append(out.Columns, k)
	}
	for _, doc := range docs {
		tuple := make([]any, len(out.Columns))
		for i, col := range out.Columns {
			tuple[i] = doc[col]
		}
		out.Values = append(out.Values, tuple)
	}
	return out, nil
}

// QueryOne adapts QueryOneDoc to the tuple-shaped Driver surface.
func (q *QLDB) QueryOne(ctx context.Context, statement string, args ...any) ([]string, []any, error) {
	doc, err := q.QueryOneDoc(ctx, statement, args...)
	if err != nil {
		return nil, nil, err
	}

	cols := make([]string, 0, len(doc))
	vals := make([]any, 0, len(doc))
	for k, v := range doc {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	return cols, vals, nil
}

// Exec executes a PartiQL statement that returns no documents.
func (q *QLDB) Exec(ctx context.Context, statement string, args ...any) error {
	_, err := q.driver.Execute(ctx, func(txn qldbdriver.Transaction) (any, error) {
		return txn.Execute(statement, args...)
	})
	if err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// Close shuts down the ledger driver's session pool.
func (q *QLDB) Close() error {
	q.driver.Shutdown(context.Background())
	return nil
}

// Placeholder reports the question-mark parameter style PartiQL uses.
func (q *QLDB) Placeholder() sq.PlaceholderFormat {
	return sq.Question
}
