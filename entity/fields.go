package entity

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fieldInfo describes one bound column of an entity struct.
type fieldInfo struct {
	name      string // lower-cased column name
	path      []int  // field index path (handles embedded structs)
	omitEmpty bool
}

type structIndex struct {
	fields []fieldInfo          // declaration order
	byName map[string]fieldInfo // lower-cased column name lookup
}

// indexCache keys reflect.Type -> *structIndex. Indexes are immutable once
// built, so concurrent Load/Map calls share them without locking.
var indexCache sync.Map

func indexOf(rt reflect.Type) *structIndex {
	if v, ok := indexCache.Load(rt); ok {
		return v.(*structIndex)
	}
	idx := buildIndex(rt)
	indexCache.Store(rt, idx)
	return idx
}

func buildIndex(rt reflect.Type) *structIndex {
	idx := &structIndex{byName: make(map[string]fieldInfo)}

	var walk func(t reflect.Type, base []int)
	walk = func(t reflect.Type, base []int) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous {
				continue // unexported
			}

			tag := sf.Tag.Get("db")
			name, omitEmpty, omit := parseTag(tag)
			if omit {
				continue
			}

			path := append(append([]int(nil), base...), i)

			// Embedded structs without an explicit column name flatten
			// into the parent, like anonymous fields in encoding/json.
			if sf.Anonymous && name == "" {
				ft := sf.Type
				for ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					walk(ft, path)
					continue
				}
			}

			if name == "" {
				name = strings.ToLower(sf.Name)
			}
			if _, exists := idx.byName[name]; exists {
				continue // first declaration wins
			}

			f := fieldInfo{name: name, path: path, omitEmpty: omitEmpty}
			idx.fields = append(idx.fields, f)
			idx.byName[name] = f
		}
	}
	walk(rt, nil)
	return idx
}

// parseTag handles `db:"-"`, `db:"name"`, `db:"name,omitempty"` and
// `db:",omitempty"`.
func parseTag(tag string) (name string, omitEmpty, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	parts := strings.Split(tag, ",")
	name = strings.ToLower(parts[0])
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// fieldByIndexAlloc walks an index path allocating nil pointers so the
// resulting field is addressable and settable.
func fieldByIndexAlloc(root reflect.Value, path []int) reflect.Value {
	v := root
	for _, i := range path {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	byteSlic = reflect.TypeOf([]byte(nil))
)

// isEntityStruct reports whether t is a struct type that should serialize
// recursively. Time and UUID values are scalars, not nested entities.
func isEntityStruct(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType && t != uuidType
}
