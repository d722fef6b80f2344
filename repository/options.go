package repository

// QueryOption narrows or shapes a find, update or delete statement.
type QueryOption func(*querySpec)

type condition struct {
	field string
	value any
}

type ordering struct {
	field string
	desc  bool
}

type querySpec struct {
	selects []string
	where   []condition
	orderBy []ordering
	groupBy []string
	limit   *uint64
	offset  *uint64
}

func buildSpec(opts []QueryOption) querySpec {
	var spec querySpec
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// Select restricts the queried columns. By default every declared entity
// column is selected.
func Select(fields ...string) QueryOption {
	return func(s *querySpec) { s.selects = append(s.selects, fields...) }
}

// Where adds an equality filter on a declared entity column. Filters
// combine with AND, in the order they are given.
func Where(field string, value any) QueryOption {
	return func(s *querySpec) { s.where = append(s.where, condition{field: field, value: value}) }
}

// Limit caps the number of returned records.
func Limit(n uint64) QueryOption {
	return func(s *querySpec) { s.limit = &n }
}

// Offset skips records before collecting results.
func Offset(n uint64) QueryOption {
	return func(s *querySpec) { s.offset = &n }
}

// OrderBy orders results by a column, descending when desc is true.
func OrderBy(field string, desc bool) QueryOption {
	return func(s *querySpec) { s.orderBy = append(s.orderBy, ordering{field: field, desc: desc}) }
}

// GroupBy groups results by the given columns.
func GroupBy(fields ...string) QueryOption {
	return func(s *querySpec) { s.groupBy = append(s.groupBy, fields...) }
}
