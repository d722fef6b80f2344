// Package entity implements the mapping layer between Go structs and the
// plain column/value representations used by database drivers. Structs bind
// columns through `db` tags; values move through a small set of coercion
// rules so records coming back from heterogeneous drivers (SQL tuples,
// Mongo documents, ion values) land on typed fields.
package entity

import (
	"fmt"
	"reflect"
	"strings"
)

// Map serializes a struct (or pointer to struct) into a column -> value map.
// Fields bind by `db:"name"` tag first, otherwise by lower-cased field name;
// `db:"-"` omits a field. Nil pointer fields are skipped, matching the
// skip-none serialization of repository writes. Nested entity structs are
// serialized recursively.
func Map(v any) (map[string]any, error) {
	return mapStruct(v, true)
}

// MapAll serializes like Map but keeps nil pointer fields as explicit nils.
// Use it when the full declared column set matters (e.g. SELECT lists).
func MapAll(v any) (map[string]any, error) {
	return mapStruct(v, false)
}

func mapStruct(v any, skipNil bool) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrNotStruct
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotStruct, v)
	}

	idx := indexOf(rv.Type())
	out := make(map[string]any, len(idx.fields))

	for _, f := range idx.fields {
		fv := rv.FieldByIndex(f.path)

		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				if skipNil {
					continue
				}
				out[f.name] = nil
				continue
			}
			fv = fv.Elem()
		}
		if f.omitEmpty && fv.IsZero() {
			continue
		}

		val, err := mapValue(fv, skipNil)
		if err != nil {
			return nil, err
		}
		out[f.name] = val
	}
	return out, nil
}

// mapValue converts a single field value to its serialized form. Nested
// entity structs become maps, slices of entities become slices of maps and
// everything else passes through NormalizeValue.
func mapValue(fv reflect.Value, skipNil bool) (any, error) {
	if isEntityStruct(fv.Type()) {
		return mapStruct(fv.Interface(), skipNil)
	}
	if fv.Kind() == reflect.Slice && isEntityStruct(fv.Type().Elem()) {
		items := make([]any, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			m, err := mapStruct(fv.Index(i).Interface(), skipNil)
			if err != nil {
				return nil, err
			}
			items[i] = m
		}
		return items, nil
	}
	return NormalizeValue(fv.Interface()), nil
}

// Load populates dst (a non-nil pointer to struct) from a column -> value
// map, applying the field coercion rules. Keys missing from the struct are
// ignored; a single leading underscore on an incoming key is stripped so
// document stores that decorate identifiers (Mongo `_id`) still bind.
func Load(dst any, data map[string]any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: destination must be a non-nil pointer, got %T", ErrNotStruct, dst)
	}
	rv = rv.Elem()
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", ErrNotStruct, dst)
	}

	idx := indexOf(rv.Type())

	for key, value := range data {
		name := strings.ToLower(strings.TrimPrefix(key, "_"))
		f, ok := idx.byName[name]
		if !ok {
			continue
		}
		fv := fieldByIndexAlloc(rv, f.path)
		if err := castValue(fv, value, rv.Type().Name(), f.name); err != nil {
			return err
		}
	}
	return nil
}

// FromRecord populates dst from a driver row tuple paired with its column
// list. The lengths must match.
func FromRecord(dst any, columns []string, record []any) error {
	if len(columns) != len(record) {
		return fmt.Errorf("%w: expected %d fields, got %d values",
			ErrSerialization, len(columns), len(record))
	}

	data := make(map[string]any, len(columns))
	for i, col := range columns {
		data[col] = record[i]
	}
	return Load(dst, data)
}

// FieldsOf returns the declared column names of an entity type in struct
// declaration order. The argument may be a struct value, a pointer to one,
// or a reflect.Type.
func FieldsOf(v any) []string {
	var rt reflect.Type
	switch t := v.(type) {
	case reflect.Type:
		rt = t
	default:
		rt = reflect.TypeOf(v)
	}
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil
	}

	idx := indexOf(rt)
	names := make([]string, len(idx.fields))
	for i, f := range idx.fields {
		names[i] = f.name
	}
	return names
}
