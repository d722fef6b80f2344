package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/danteay/dbrepo/driver"
	"github.com/danteay/dbrepo/entity"
)

// SQL is a repository over any SQL-shaped driver (Postgres, MySQL, SQLite,
// DuckDB). E must be a struct type with `db`-bound columns; every filter,
// select and update field is validated against that declared column set.
type SQL[E any] struct {
	drv    driver.Driver
	table  string
	cfg    config
	fields []string
	known  map[string]struct{}
}

// NewSQL binds a SQL repository to a table and entity type.
func NewSQL[E any](drv driver.Driver, table string, opts ...Option) (*SQL[E], error) {
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

	r := &SQL[E]{
		drv:    drv,
		table:  table,
		cfg:    newConfig(opts),
		fields: fields,
		known:  known,
	}

	if r.cfg.autoTimestamps {
		for _, f := range []string{r.cfg.createdAt, r.cfg.updatedAt} {
			if _, ok := known[f]; !ok {
				return nil, fmt.Errorf("%w: timestamp column %q is not declared on %T", ErrBuild, f, zero)
			}
		}
	}
	if r.cfg.idField != "" {
		if _, ok := known[r.cfg.idField]; !ok {
			return nil, fmt.Errorf("%w: id column %q is not declared on %T", ErrBuild, r.cfg.idField, zero)
		}
	}
	return r, nil
}

// FindOne returns the first record matching the filters, ErrNotFound when
// nothing matches.
func (r *SQL[E]) FindOne(ctx context.Context, opts ...QueryOption) (E, error) {
	var out E

	spec := buildSpec(opts)
	fields, err := r.selectedFields(spec)
	if err != nil {
		return out, err
	}

	b := sq.Select(r.quoteAll(fields)...).
		From(r.quoteTable()).
		Limit(1).
		PlaceholderFormat(r.drv.Placeholder())

	b, err = r.applyWhere(b, spec)
	if err != nil {
		return out, err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	cols, values, err := r.drv.QueryOne(ctx, query, args...)
	if err != nil {
		if errors.Is(err, driver.ErrNoRows) {
			return out, ErrNotFound
		}
		return out, err
	}

	if err := entity.FromRecord(&out, cols, values); err != nil {
		return out, err
	}
	return out, nil
}

// FindMany returns every record matching the filters, honoring Limit,
// Offset, OrderBy and GroupBy options.
func (r *SQL[E]) FindMany(ctx context.Context, opts ...QueryOption) ([]E, error) {
	spec := buildSpec(opts)
	fields, err := r.selectedFields(spec)
	if err != nil {
		return nil, err
	}

	b := sq.Select(r.quoteAll(fields)...).
		From(r.quoteTable()).
		PlaceholderFormat(r.drv.Placeholder())

	b, err = r.applyWhere(b, spec)
	if err != nil {
		return nil, err
	}

	for _, o := range spec.orderBy {
		if err := r.checkField(o.field); err != nil {
			return nil, err
		}
		dir := " ASC"
		if o.desc {
			dir = " DESC"
		}
		b = b.OrderBy(r.quote(o.field) + dir)
	}
	for _, g := range spec.groupBy {
		if err := r.checkField(g); err != nil {
			return nil, err
		}
		b = b.GroupBy(r.quote(g))
	}
	if spec.limit != nil {
		b = b.Limit(*spec.limit)
	}
	if spec.offset != nil {
		b = b.Offset(*spec.offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	rows, err := r.drv.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]E, 0, len(rows.Values))
	for _, record := range rows.Values {
		var e E
		if err := entity.FromRecord(&e, rows.Columns, record); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// InsertOne inserts a record. When returning columns are given (Postgres
// RETURNING), the returned values are loaded back onto the record.
func (r *SQL[E]) InsertOne(ctx context.Context, record *E, returning ...string) error {
	if record == nil {
		return ErrEmptyRecord
	}

	data, err := entity.Map(record)
	if err != nil {
		return err
	}
	if len(data) == 0 && r.cfg.idField == "" && !r.cfg.autoTimestamps {
		return ErrEmptyRecord
	}

	now := time.Now().UTC()
	r.cfg.generateID(data)
	r.cfg.stampCreated(data, now)
	r.cfg.stampUpdated(data, now)

	columns, values := r.orderedColumns(data)

	b := sq.Insert(r.quoteTable()).
		Columns(r.quoteAll(columns)...).
		Values(values...).
		PlaceholderFormat(r.drv.Placeholder())

	if len(returning) > 0 {
		for _, f := range returning {
			if err := r.checkField(f); err != nil {
				return err
			}
		}
		b = b.Suffix("RETURNING " + strings.Join(r.quoteAll(returning), ", "))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	if len(returning) == 0 {
		return r.drv.Exec(ctx, query, args...)
	}

	cols, vals, err := r.drv.QueryOne(ctx, query, args...)
	if err != nil {
		return err
	}
	return entity.FromRecord(record, cols, vals)
}

// InsertMany inserts several records in one statement. The column set is
// taken from the first record; the rest must serialize to the same shape.
func (r *SQL[E]) InsertMany(ctx context.Context, records []E) error {
	if len(records) == 0 {
		return ErrEmptyRecord
	}

	now := time.Now().UTC()

	first, err := r.insertData(records[0], now)
	if err != nil {
		return err
	}
	columns, values := r.orderedColumns(first)

	b := sq.Insert(r.quoteTable()).
		Columns(r.quoteAll(columns)...).
		Values(values...).
		PlaceholderFormat(r.drv.Placeholder())

	for _, record := range records[1:] {
		data, err := r.insertData(record, now)
		if err != nil {
			return err
		}
		tuple := make([]any, len(columns))
		for i, col := range columns {
			tuple[i] = data[col]
		}
		b = b.Values(tuple...)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	return r.drv.Exec(ctx, query, args...)
}

// Update sets new data on every record matching the filters.
func (r *SQL[E]) Update(ctx context.Context, data map[string]any, opts ...QueryOption) error {
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

	b := sq.Update(r.quoteTable()).PlaceholderFormat(r.drv.Placeholder())
	for _, f := range r.fields {
		if v, ok := update[f]; ok {
			b = b.Set(r.quote(f), v)
		}
	}

	spec := buildSpec(opts)
	var err error
	b, err = r.applyUpdateWhere(b, spec)
	if err != nil {
		return err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	return r.drv.Exec(ctx, query, args...)
}

// Delete removes every record matching the filters.
func (r *SQL[E]) Delete(ctx context.Context, opts ...QueryOption) error {
	spec := buildSpec(opts)

	b := sq.Delete(r.quoteTable()).PlaceholderFormat(r.drv.Placeholder())
	for _, c := range spec.where {
		if err := r.checkField(c.field); err != nil {
			return err
		}
		b = b.Where(sq.Eq{r.quote(c.field): entity.NormalizeValue(c.value)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	r.logStatement(query, args)

	return r.drv.Exec(ctx, query, args...)
}

// Fields returns the declared column set of the handled entity.
func (r *SQL[E]) Fields() []string {
	return append([]string(nil), r.fields...)
}

func (r *SQL[E]) insertData(record E, now time.Time) (map[string]any, error) {
	data, err := entity.Map(record)
	if err != nil {
		return nil, err
	}
	r.cfg.generateID(data)
	r.cfg.stampCreated(data, now)
	r.cfg.stampUpdated(data, now)
	return data, nil
}

func (r *SQL[E]) selectedFields(spec querySpec) ([]string, error) {
	if len(spec.selects) == 0 {
		return r.fields, nil
	}
	for _, f := range spec.selects {
		if err := r.checkField(f); err != nil {
			return nil, err
		}
	}
	return spec.selects, nil
}

func (r *SQL[E]) applyWhere(b sq.SelectBuilder, spec querySpec) (sq.SelectBuilder, error) {
	for _, c := range spec.where {
		if err := r.checkField(c.field); err != nil {
			return b, err
		}
		b = b.Where(sq.Eq{r.quote(c.field): entity.NormalizeValue(c.value)})
	}
	return b, nil
}

func (r *SQL[E]) applyUpdateWhere(b sq.UpdateBuilder, spec querySpec) (sq.UpdateBuilder, error) {
	for _, c := range spec.where {
		if err := r.checkField(c.field); err != nil {
			return b, err
		}
		b = b.Where(sq.Eq{r.quote(c.field): entity.NormalizeValue(c.value)})
	}
	return b, nil
}

func (r *SQL[E]) checkField(name string) error {
	if _, ok := r.known[name]; !ok {
		return fmt.Errorf("%w: field %q is not declared on handled entity", ErrBuild, name)
	}
	return nil
}

// orderedColumns flattens a data map into column and value slices in the
// entity's declaration order, so built statements are deterministic.
func (r *SQL[E]) orderedColumns(data map[string]any) ([]string, []any) {
	columns := make([]string, 0, len(data))
	values := make([]any, 0, len(data))
	for _, f := range r.fields {
		if v, ok := data[f]; ok {
			columns = append(columns, f)
			values = append(values, entity.NormalizeValue(v))
		}
	}
	return columns, values
}

// quote quotes identifiers on the Postgres dialect. Question-placeholder
// backends receive identifiers as written.
func (r *SQL[E]) quote(name string) string {
	if r.drv.Placeholder() == sq.PlaceholderFormat(sq.Dollar) {
		return pq.QuoteIdentifier(name)
	}
	return name
}

func (r *SQL[E]) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.quote(n)
	}
	return out
}

func (r *SQL[E]) quoteTable() string {
	// Schema-qualified names pass through untouched.
	if strings.Contains(r.table, ".") {
		return r.table
	}
	return r.quote(r.table)
}

func (r *SQL[E]) logStatement(query string, args []any) {
	r.cfg.logger.Debug("executing statement",
		slog.String("table", r.table),
		slog.String("sql", query),
		slog.Int("args", len(args)),
	)
}
