package entity

import (
	"database/sql"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// timeLayouts are tried in order when coercing a string into time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
}

// castValue coerces src into the settable destination field. The rules are
// deliberately permissive in source type and strict in destination type:
// whatever dynamic shape a driver hands back (string dates, float64
// numerics, []byte text, nested documents) must land on the declared field
// type or fail with a CastError.
func castValue(dst reflect.Value, src any, owner, field string) error {
	if src == nil {
		return nil // leave the zero value
	}

	// Pointer destinations allocate and cast into the element.
	for dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		dst = dst.Elem()
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	// Scalar special cases before the generic kind switch.
	switch dst.Type() {
	case timeType:
		return castTime(dst, src, owner, field)
	case uuidType:
		return castUUID(dst, src, owner, field)
	}

	// Destination-provided conversions.
	if dst.CanAddr() {
		addr := dst.Addr().Interface()
		if sc, ok := addr.(sql.Scanner); ok {
			if err := sc.Scan(src); err != nil {
				return newCastError(owner, field, src, dst.Type(), err)
			}
			return nil
		}
		if tu, ok := addr.(encoding.TextUnmarshaler); ok {
			if txt, ok := textOf(src); ok {
				if err := tu.UnmarshalText([]byte(txt)); err != nil {
					return newCastError(owner, field, src, dst.Type(), err)
				}
				return nil
			}
		}
	}

	switch dst.Kind() {
	case reflect.String:
		if txt, ok := textOf(src); ok {
			dst.SetString(txt)
			return nil
		}

	case reflect.Bool:
		if b, ok := boolOf(src); ok {
			dst.SetBool(b)
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := intOf(src); ok {
			dst.SetInt(n)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := intOf(src); ok && n >= 0 {
			dst.SetUint(uint64(n))
			return nil
		}

	case reflect.Float32, reflect.Float64:
		if f, ok := floatOf(src); ok {
			dst.SetFloat(f)
			return nil
		}

	case reflect.Struct:
		// Nested entity from a document value.
		if m, ok := src.(map[string]any); ok {
			nested := reflect.New(dst.Type())
			if err := Load(nested.Interface(), m); err != nil {
				return newCastError(owner, field, src, dst.Type(), err)
			}
			dst.Set(nested.Elem())
			return nil
		}

	case reflect.Slice:
		if dst.Type() == byteSlic {
			if txt, ok := textOf(src); ok {
				dst.SetBytes([]byte(txt))
				return nil
			}
			break
		}
		if sv.Kind() == reflect.Slice || sv.Kind() == reflect.Array {
			out := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
			for i := 0; i < sv.Len(); i++ {
				item := sv.Index(i).Interface()
				if err := castValue(out.Index(i), item, owner, field); err != nil {
					return err
				}
			}
			dst.Set(out)
			return nil
		}

	case reflect.Map:
		if sv.Kind() == reflect.Map && sv.Type().ConvertibleTo(dst.Type()) {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
	}

	if sv.Type().ConvertibleTo(dst.Type()) && convertibleKinds(sv.Kind(), dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return newCastError(owner, field, src, dst.Type(), nil)
}

func castTime(dst reflect.Value, src any, owner, field string) error {
	switch v := src.(type) {
	case time.Time:
		dst.Set(reflect.ValueOf(v))
		return nil
	case *time.Time:
		if v != nil {
			dst.Set(reflect.ValueOf(*v))
		}
		return nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
	case []byte:
		return castTime(dst, string(v), owner, field)
	case int64:
		dst.Set(reflect.ValueOf(time.Unix(v, 0).UTC()))
		return nil
	case int:
		dst.Set(reflect.ValueOf(time.Unix(int64(v), 0).UTC()))
		return nil
	case float64:
		dst.Set(reflect.ValueOf(time.Unix(int64(v), 0).UTC()))
		return nil
	}
	return newCastError(owner, field, src, timeType, nil)
}

func castUUID(dst reflect.Value, src any, owner, field string) error {
	switch v := src.(type) {
	case uuid.UUID:
		dst.Set(reflect.ValueOf(v))
		return nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return newCastError(owner, field, src, uuidType, err)
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return newCastError(owner, field, src, uuidType, err)
			}
			dst.Set(reflect.ValueOf(id))
			return nil
		}
		return castUUID(dst, string(v), owner, field)
	}
	return newCastError(owner, field, src, uuidType, nil)
}

func textOf(src any) (string, bool) {
	switch v := src.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	rv := reflect.ValueOf(src)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func boolOf(src any) (bool, bool) {
	switch v := src.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	case []byte:
		b, err := strconv.ParseBool(string(v))
		return b, err == nil
	}
	if n, ok := intOf(src); ok {
		return n != 0, true
	}
	return false, false
}

func intOf(src any) (int64, bool) {
	switch v := src.(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}

func floatOf(src any) (float64, bool) {
	switch v := src.(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	}
	rv := reflect.ValueOf(src)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// convertibleKinds limits reflect.Convert fallbacks to same-family kinds so
// coercion never silently turns, say, an int into a string of one rune.
func convertibleKinds(src, dst reflect.Kind) bool {
	family := func(k reflect.Kind) int {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return 1
		case reflect.String:
			return 2
		default:
			return 0
		}
	}
	fs, fd := family(src), family(dst)
	return fs != 0 && fs == fd
}

// NormalizeValue converts values database clients cannot take natively into
// a portable form before they are handed to a driver. Currently UUIDs
// become their canonical string form; everything else passes through.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case uuid.UUID:
		return val.String()
	case *uuid.UUID:
		if val == nil {
			return nil
		}
		return val.String()
	}
	return v
}

func newCastError(owner, field string, value any, target reflect.Type, err error) error {
	return &CastError{
		Entity: owner,
		Field:  field,
		Value:  value,
		Target: target.String(),
		cause:  err,
	}
}

// CastError reports a value that could not be coerced onto an entity field.
type CastError struct {
	Entity string
	Field  string
	Value  any
	Target string
	cause  error
}

func (e *CastError) Error() string {
	msg := fmt.Sprintf("entity: %s.%s(%v) cannot be cast from %T to %s",
		e.Entity, e.Field, e.Value, e.Value, e.Target)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *CastError) Unwrap() error { return e.cause }
