package node

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Compile time checks to ensure Reflect satisfies the capability interfaces.
var (
	_ Accessor  = Reflect{}
	_ Inspector = Reflect{}
	_ Sourcer   = Reflect{}
)

// Reflect is an Accessor over plain Go values using package reflect.
//
// Maps expose their keys (sorted, so enumeration is deterministic), structs
// expose their exported fields in declaration order, slices and arrays expose
// their indices. Pointers and interfaces are followed transparently.
// Channels and unsafe pointers are classified as opaque objects.
type Reflect struct{}

// NewReflect returns a reflection-backed accessor.
func NewReflect() Reflect { return Reflect{} }

// OwnKeys implements Accessor.
func (Reflect) OwnKeys(n any) ([]string, error) {
	rv := indirect(reflect.ValueOf(n))
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, keyString(iter.Key()))
		}
		sort.Strings(keys)
		return keys, nil
	case reflect.Struct:
		t := rv.Type()
		keys := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() {
				keys = append(keys, f.Name)
			}
		}
		return keys, nil
	case reflect.Slice, reflect.Array:
		keys := make([]string, rv.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys, nil
	default:
		return nil, nil
	}
}

// Get implements Accessor.
func (Reflect) Get(n any, key string) (any, error) {
	rv := indirect(reflect.ValueOf(n))
	if !rv.IsValid() {
		return nil, ErrNoSuchKey
	}

	switch rv.Kind() {
	case reflect.Map:
		return mapGet(rv, key)
	case reflect.Struct:
		sf, ok := rv.Type().FieldByName(key)
		if !ok || !sf.IsExported() {
			return nil, ErrNoSuchKey
		}
		fv, err := rv.FieldByIndexErr(sf.Index)
		if err != nil {
			return nil, &ReadError{Key: key, Cause: err}
		}
		return fv.Interface(), nil
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, ErrNoSuchKey
		}
		return rv.Index(i).Interface(), nil
	default:
		return nil, ErrNoSuchKey
	}
}

// Classify implements Accessor.
func (Reflect) Classify(v any) Kind {
	if v == nil {
		return Null
	}
	return classifyValue(reflect.ValueOf(v))
}

// TypeName implements Inspector.
func (Reflect) TypeName(v any) string {
	if v == nil {
		return "null"
	}
	return reflect.TypeOf(v).String()
}

// Opaque implements Inspector.
func (Reflect) Opaque(v any) bool {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

// Source implements Sourcer. Go keeps no source text at runtime, so the
// rendering is the function's signature with its symbol name spliced in.
func (Reflect) Source(fn any) (string, error) {
	rv := indirect(reflect.ValueOf(fn))
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return "", fmt.Errorf("not a function: %T", fn)
	}

	sig := rv.Type().String()
	if f := runtime.FuncForPC(rv.Pointer()); f != nil {
		return strings.Replace(sig, "func", "func "+f.Name(), 1), nil
	}
	return sig, nil
}

func classifyValue(rv reflect.Value) Kind {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return classifyValue(rv.Elem())
	case reflect.Map, reflect.Slice, reflect.Chan:
		if rv.IsNil() {
			return Null
		}
		return Object
	case reflect.Func:
		if rv.IsNil() {
			return Null
		}
		return Function
	case reflect.String:
		return String
	case reflect.Struct, reflect.Array, reflect.UnsafePointer:
		return Object
	default:
		return Primitive
	}
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func mapGet(rv reflect.Value, key string) (any, error) {
	kt := rv.Type().Key()
	if kt.Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(key).Convert(kt))
		if !v.IsValid() {
			return nil, ErrNoSuchKey
		}
		return v.Interface(), nil
	}

	iter := rv.MapRange()
	for iter.Next() {
		if keyString(iter.Key()) == key {
			return iter.Value().Interface(), nil
		}
	}
	return nil, ErrNoSuchKey
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
