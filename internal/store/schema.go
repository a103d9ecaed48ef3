package store

import (
	"reflect"
	"time"
)

// Entity is the minimal surface the store needs from a stored type. Base
// entity types embed it via their shared base struct.
type Entity interface {
	EntityID() string
	SetEntityID(id string)
	Touch(now time.Time)
}

// Schema describes how a type is stored: its kind (key namespace) and which
// fields carry an equality index. Field names are json tag names.
type Schema[T Entity] struct {
	kind    string
	indexed []string
	fields  map[string][]int
}

func NewSchema[T Entity](kind string, indexed ...string) *Schema[T] {
	var zero T
	typ := reflect.TypeOf(zero)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	s := &Schema[T]{
		kind:    kind,
		indexed: indexed,
		fields:  make(map[string][]int),
	}
	collectFields(typ, nil, s.fields)
	return s
}

func (s *Schema[T]) Kind() string { return s.kind }

func (s *Schema[T]) Indexed() []string { return s.indexed }

// Value returns the named field of e, resolved by json tag.
func (s *Schema[T]) Value(e T, field string) (any, bool) {
	path, ok := s.fields[field]
	if !ok {
		return nil, false
	}
	v := reflect.ValueOf(e)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for _, i := range path {
		v = v.Field(i)
		for v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
	}
	return v.Interface(), true
}

func collectFields(typ reflect.Type, prefix []int, out map[string][]int) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		path := append(append([]int{}, prefix...), i)
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if f.Anonymous && ft.Kind() == reflect.Struct {
			collectFields(ft, path, out)
			continue
		}
		name := jsonName(f)
		if name == "" {
			continue
		}
		out[name] = path
	}
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag == "" {
		return f.Name
	}
	return tag
}

// newValue allocates a fresh element for a pointer-typed entity, used when
// decoding stored JSON.
func newValue[T Entity]() T {
	var zero T
	typ := reflect.TypeOf(zero).Elem()
	return reflect.New(typ).Interface().(T)
}

// normalize collapses typed strings and integer widths so values from
// different sources (struct fields, decoded cursors, query parameters)
// compare cleanly.
func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float64:
		return t
	case bool:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
