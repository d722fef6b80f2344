package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/danteay/dbrepo/driver"
	"github.com/danteay/dbrepo/entity"
)

// Ledger is the PartiQL-shaped driver surface the QLDB repository rides
// on. *driver.QLDB satisfies it.
type Ledger interface {
	QueryDocs(ctx context.Context, statement string, args ...any) ([]map[string]any, error)
	QueryOneDoc(ctx context.Context, statement string, args ...any) (map[string]any, error)
	Exec(ctx context.Context, statement string, args ...any) error
}

// QLDB is a repository over an Amazon QLDB ledger. Statements are PartiQL;
// the ledger does not support LIMIT or OFFSET, so those options are
// rejected.
type QLDB[E any] struct {
	ledger Ledger
	table  string
	cfg    config
	fields []string
	known  map[string]struct{}
}

// NewQLDB binds a ledger repository to a table and entity type.
func NewQLDB[E any](ledger Ledger, table string, opts ...Option) (*QLDB[E], error) {
	var zero E

	fields := entity.FieldsOf(zero)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: entity type %T declares no columns", ErrBuild, zero)
	}
	if table == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrBuild)
	}

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}

	return &QLDB[E]{
		ledger: ledger,
		table:  table,
		cfg:    newConfig(opts),
		fields: fields,
		known:  known,
	}, nil
}

// FindOne returns the first document matching the filters, ErrNotFound
// when nothing matches.
func (r *QLDB[E]) FindOne(ctx context.Context, opts ...QueryOption) (E, error) {
	var out E

	query, args, err := r.buildSelect(buildSpec(opts), false)
	if err != nil {
		return out, err
	}
	r.logStatement(query, args)

	doc, err := r.ledger.QueryOneDoc(ctx, query, args...)
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

// FindMany returns every document matching the filters. OrderBy and
// GroupBy are honored; the ledger rejects Limit and Offset.
func (r *QLDB[E]) FindMany(ctx context.Context, opts ...QueryOption) ([]E, error) {
	query, args, err := r.buildSelect(buildSpec(opts), true)
	if err != nil {
		return nil, err
	}
	r.logStatement(query, args)

	docs, err := r.ledger.QueryDocs(ctx, query, args...)
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

// InsertOne inserts a record as a ledger document.
func (r *QLDB[E]) InsertOne(ctx context.Context, record E) error {
	doc, err := r.insertData(record, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(doc) == 0 {
		return ErrEmptyRecord
	}

	query := fmt.Sprintf("INSERT INTO %s ?", r.table)
	r.logStatement(query, []any{doc})

	return r.ledger.Exec(ctx, query, doc)
}

// InsertMany inserts several records in one document-list statement.
func (r *QLDB[E]) InsertMany(ctx context.Context, records []E) error {
	if len(records) == 0 {
		return ErrEmptyRecord
	}

	now := time.Now().UTC()
	docs := make([]map[string]any, len(records))
	for i, record := range records {
		doc, err := r.insertData(record, now)
		if err != nil {
			return err
		}
		docs[i] = doc
	}

	query := fmt.Sprintf("INSERT INTO %s ?", r.table)
	r.logStatement(query, []any{docs})

	return r.ledger.Exec(ctx, query, docs)
}

// Update sets new data on every document matching the filters.
func (r *QLDB[E]) Update(ctx context.Context, data map[string]any, opts ...QueryOption) error {
	if len(data) == 0 {
		return ErrEmptyRecord
	}
	for key := range data {
		if err := r.checkField(key); err != nil {
			return err
		}
	}

	update := make(map[string]any, len(data)+1)
	for k, v := range data {
		update[k] = entity.NormalizeValue(v)
	}
	r.cfg.stampUpdated(update, time.Now().UTC())

	b := sq.Update(r.table)
	for _, f := range r.fields {
		if v, ok := update[f]; ok {
			b = b.Set(f, v)
		}
	}

	spec := buildSpec(opts)
	for _, c := range spec.where {
		if err := r.checkField(c.field); err != nil {
			return err
		}
		b = b.Where(sq.Eq{c.field: entity.NormalizeValue(c.value)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	return r.ledger.Exec(ctx, query, args...)
}

// Delete removes every document matching the filters.
func (r *QLDB[E]) Delete(ctx context.Context, opts ...QueryOption) error {
	spec := buildSpec(opts)

	b := sq.Delete(r.table)
	for _, c := range spec.where {
		if err := r.checkField(c.field); err != nil {
			return err
		}
		b = b.Where(sq.Eq{c.field: entity.NormalizeValue(c.value)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	return r.ledger.Exec(ctx, query, args...)
}

func (r *QLDB[E]) buildSelect(spec querySpec, withGrouping bool) (string, []any, error) {
	if spec.limit != nil || spec.offset != nil {
		return "", nil, fmt.Errorf("%w: the ledger does not support limit or offset", ErrBuild)
	}

	fields := r.fields
	if len(spec.selects) > 0 {
		for _, f := range spec.selects {
			if err := r.checkField(f); err != nil {
				return "", nil, err
			}
		}
		fields = spec.selects
	}

	b := sq.Select(fields...).From(r.table)
	for _, c := range spec.where {
		if err := r.checkField(c.field); err != nil {
			return "", nil, err
		}
		b = b.Where(sq.Eq{c.field: entity.NormalizeValue(c.value)})
	}

	if withGrouping {
		for _, o := range spec.orderBy {
			if err := r.checkField(o.field); err != nil {
				return "", nil, err
			}
			dir := " ASC"
			if o.desc {
				dir = " DESC"
			}
			b = b.OrderBy(o.field + dir)
		}
		for _, g := range spec.groupBy {
			if err := r.checkField(g); err != nil {
				return "", nil, err
			}
			b = b.GroupBy(g)
		}
	}

	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	return query, args, nil
}

func (r *QLDB[E]) insertData(record E, now time.Time) (map[string]any, error) {
	doc, err := entity.Map(record)
	if err != nil {
		return nil, err
	}
	r.cfg.generateID(doc)
	r.cfg.stampCreated(doc, now)
	r.cfg.stampUpdated(doc, now)
	return doc, nil
}

func (r *QLDB[E]) checkField(name string) error {
	if _, ok := r.known[name]; !ok {
		return fmt.Errorf("%w: field %q is not declared on handled entity", ErrBuild, name)
	}
	return nil
}

func (r *QLDB[E]) logStatement(query string, args []any) {
	r.cfg.logger.Debug("executing statement",
		slog.String("table", r.table),
		slog.String("sql", query),
		slog.Int("args", len(args)),
	)
}
