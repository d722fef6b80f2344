package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection parameters. A full connection URL
// (mongodb:// or mongodb+srv://) wins over the discrete fields.
type MongoConfig struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DATABASE_USER"`
	Password string `env:"DATABASE_PASSWORD"`
	Host     string `env:"DATABASE_HOST" envDefault:"localhost"`
	Port     string `env:"DATABASE_PORT" envDefault:"27017"`
	Name     string `env:"DATABASE_NAME"`
}

// MongoConfigFromEnv loads connection parameters from the environment.
func MongoConfigFromEnv() (MongoConfig, error) {
	var cfg MongoConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

func (c MongoConfig) uri() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.User == "" {
		return "", fmt.Errorf("%w: no user detected", ErrConfig)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s", c.User, c.Password, c.Host, c.Port), nil
}

// MongoSort selects the ordering of find results.
type MongoSort int

const (
	MongoAsc  MongoSort = 1
	MongoDesc MongoSort = -1
)

// MongoFindOptions carries the optional knobs of a find query.
type MongoFindOptions struct {
	OrderBy string
	Order   MongoSort
	Limit   int64
	Offset  int64
}

// Mongo wraps a mongo-driver client scoped to one database. Its API is
// document-shaped rather than statement-shaped; the repository layer
// translates between documents and entities.
type Mongo struct {
	client   *mongo.Client
	database string
}

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: no database name detected", ErrConfig)
	}

	uri, err := cfg.uri()
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Mongo{client: client, database: cfg.Name}, nil
}

// NewMongoFromEnv connects using environment-provided parameters.
func NewMongoFromEnv(ctx context.Context) (*Mongo, error) {
	cfg, err := MongoConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewMongo(ctx, cfg)
}

// FindOne returns the first document matching the filter, ErrNoRows when
// nothing matches.
func (m *Mongo) FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error) {
	res := m.coll(collection).FindOne(ctx, toBSON(filter))

	var doc map[string]any
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("find failed: %w", err)
	}
	return doc, nil
}

// Find returns every document matching the filter, honoring the optional
// sort, limit and offset.
func (m *Mongo) Find(ctx context.Context, collection string, filter map[string]any, opts MongoFindOptions) ([]map[string]any, error) {
	findOpts := options.Find()
	if opts.OrderBy != "" {
		order := opts.Order
		if order == 0 {
			order = MongoDesc
		}
		findOpts.SetSort(bson.D{{Key: opts.OrderBy, Value: int(order)}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(opts.Offset)
	}

	cursor, err := m.coll(collection).Find(ctx, toBSON(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []map[string]any
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// InsertOne adds one document and returns its inserted id.
func (m *Mongo) InsertOne(ctx context.Context, collection string, doc map[string]any) (any, error) {
	res, err := m.coll(collection).InsertOne(ctx, toBSON(doc))
	if err != nil {
		return nil, fmt.Errorf("insert failed: %w", err)
	}
	return res.InsertedID, nil
}

// InsertMany adds several documents at once and returns their inserted ids.
func (m *Mongo) InsertMany(ctx context.Context, collection string, docs []map[string]any) ([]any, error) {
	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = toBSON(doc)
	}

	res, err := m.coll(collection).InsertMany(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("insert failed: %w", err)
	}
	return res.InsertedIDs, nil
}

// UpdateMany applies a $set update to every document matching the filter.
func (m *Mongo) UpdateMany(ctx context.Context, collection string, filter, data map[string]any) error {
	_, err := m.coll(collection).UpdateMany(ctx, toBSON(filter), bson.M{"$set": toBSON(data)})
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

// DeleteMany removes every document matching the filter.
func (m *Mongo) DeleteMany(ctx context.Context, collection string, filter map[string]any) error {
	if _, err := m.coll(collection).DeleteMany(ctx, toBSON(filter)); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Client returns the underlying mongo client.
// Use sparingly - prefer the Mongo surface.
func (m *Mongo) Client() *mongo.Client {
	return m.client
}

func (m *Mongo) coll(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

func toBSON(doc map[string]any) bson.M {
	if doc == nil {
		return bson.M{}
	}
	return bson.M(doc)
}
