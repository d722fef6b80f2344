package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danteay/dbrepo/driver"
	"github.com/danteay/dbrepo/entity"
)

// DocStore is the document-shaped driver surface the Mongo repository
// rides on. *driver.Mongo satisfies it.
type DocStore interface {
	FindOne(ctx context.Context, collection string, filter map[string]any) (map[string]any, error)
	Find(ctx context.Context, collection string, filter map[string]any, opts driver.MongoFindOptions) ([]map[string]any, error)
	InsertOne(ctx context.Context, collection string, doc map[string]any) (any, error)
	InsertMany(ctx context.Context, collection string, docs []map[string]any) ([]any, error)
	UpdateMany(ctx context.Context, collection string, filter, data map[string]any) error
	DeleteMany(ctx context.Context, collection string, filter map[string]any) error
}

// Mongo is a repository over a document store. Filters are raw filter
// documents, so Mongo query operators pass through untouched.
type Mongo[E any] struct {
	store      DocStore
	collection string
	cfg        config
}

// NewMongo binds a document repository to a collection and entity type.
func NewMongo[E any](store DocStore, collection string, opts ...Option) (*Mongo[E], error) {
	var zero E

	if len(entity.FieldsOf(zero)) == 0 {
		return nil, fmt.Errorf("%w: entity type %T declares no columns", ErrBuild, zero)
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", ErrBuild)
	}

	return &Mongo[E]{store: store, collection: collection, cfg: newConfig(opts)}, nil
}

// FindOne returns the first document matching the filter, ErrNotFound when
// nothing matches.
func (r *Mongo[E]) FindOne(ctx context.Context, filter map[string]any) (E, error) {
	var out E

	r.logFilter("find_one", filter)

	doc, err := r.store.FindOne(ctx, r.collection, filter)
	if err != nil {
		if errors.Is(err, driver.ErrNoRows) {
			return out, ErrNotFound
		}
		return out, err
	}

	if err := entity.Load(&out, doc); err != nil {
		return out, err
	}
	return out, nil
}

// FindMany returns every document matching the filter. Limit, Offset and
// OrderBy options translate to the native find options; Select and GroupBy
// have no document-store meaning and are rejected.
func (r *Mongo[E]) FindMany(ctx context.Context, filter map[string]any, opts ...QueryOption) ([]E, error) {
	spec := buildSpec(opts)
	if len(spec.selects) > 0 || len(spec.groupBy) > 0 {
		return nil, fmt.Errorf("%w: select and group options are not supported on document stores", ErrBuild)
	}

	findOpts := driver.MongoFindOptions{}
	if len(spec.orderBy) > 0 {
		findOpts.OrderBy = spec.orderBy[0].field
		findOpts.Order = driver.MongoAsc
		if spec.orderBy[0].desc {
			findOpts.Order = driver.MongoDesc
		}
	}
	if spec.limit != nil {
		findOpts.Limit = int64(*spec.limit)
	}
	if spec.offset != nil {
		findOpts.Offset = int64(*spec.offset)
	}

	r.logFilter("find_many", filter)

	docs, err := r.store.Find(ctx, r.collection, filter, findOpts)
	if err != nil {
		return nil, err
	}

	out := make([]E, 0, len(docs))
	for _, doc := range docs {
		var e E
		if err := entity.Load(&e, doc); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// InsertOne adds one document and returns its inserted id.
func (r *Mongo[E]) InsertOne(ctx context.Context, record E) (any, error) {
	doc, err := r.insertData(record, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, ErrEmptyRecord
	}

	r.logFilter("insert_one", nil)
	return r.store.InsertOne(ctx, r.collection, doc)
}

// InsertMany adds several documents at once and returns their inserted
// ids.
func (r *Mongo[E]) InsertMany(ctx context.Context, records []E) ([]any, error) {
	if len(records) == 0 {
		return nil, ErrEmptyRecord
	}

	now := time.Now().UTC()
	docs := make([]map[string]any, len(records))
	for i, record := range records {
		doc, err := r.insertData(record, now)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}

	r.logFilter("insert_many", nil)
	return r.store.InsertMany(ctx, r.collection, docs)
}

// Update applies new data to every document matching the filter.
func (r *Mongo[E]) Update(ctx context.Context, filter, data map[string]any) error {
	if len(data) == 0 {
		return ErrEmptyRecord
	}

	update := make(map[string]any, len(data)+1)
	for k, v := range data {
		update[k] = entity.NormalizeValue(v)
	}
	r.cfg.stampUpdated(update, time.Now().UTC())

	r.logFilter("update", filter)
	return r.store.UpdateMany(ctx, r.collection, filter, update)
}

// Delete removes every document matching the filter.
func (r *Mongo[E]) Delete(ctx context.Context, filter map[string]any) error {
	r.logFilter("delete", filter)
	return r.store.DeleteMany(ctx, r.collection, filter)
}

func (r *Mongo[E]) insertData(record E, now time.Time) (map[string]any, error) {
	doc, err := entity.Map(record)
	if err != nil {
		return nil, err
	}
	r.cfg.generateID(doc)
	r.cfg.stampCreated(doc, now)
	r.cfg.stampUpdated(doc, now)
	return doc, nil
}

func (r *Mongo[E]) logFilter(op string, filter map[string]any) {
	r.cfg.logger.Debug("executing document operation",
		slog.String("collection", r.collection),
		slog.String("op", op),
		slog.Int("filters", len(filter)),
	)
}
