package serialize

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/hupe1980/graphdig/codec"
	"github.com/hupe1980/graphdig/internal/visited"
	"github.com/hupe1980/graphdig/node"
)

// Unintelligible is the preview returned when rendering fails outright.
const Unintelligible = "[unintelligible]"

// Options bounds serialization work.
type Options struct {
	// MaxDepth limits nesting in Serialize. Deeper objects are summarized
	// with Truncated set.
	MaxDepth int

	// MaxFields limits the number of properties kept per object.
	MaxFields int

	// PreviewDepth and PreviewFields bound the structure rendered by Preview
	// for composite values.
	PreviewDepth  int
	PreviewFields int

	// PreviewLimit caps composite previews in bytes. Strings are never cut.
	PreviewLimit int
}

// DefaultOptions returns the bounds used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxDepth:      8,
		MaxFields:     1000,
		PreviewDepth:  2,
		PreviewFields: 32,
		PreviewLimit:  1024,
	}
}

// Serializer renders values read through one accessor.
// It holds no per-call state and is safe for concurrent use.
type Serializer struct {
	acc  node.Accessor
	opts Options
}

// New creates a Serializer. Zero option fields take their defaults.
func New(acc node.Accessor, opts Options) *Serializer {
	def := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxFields <= 0 {
		opts.MaxFields = def.MaxFields
	}
	if opts.PreviewDepth <= 0 {
		opts.PreviewDepth = def.PreviewDepth
	}
	if opts.PreviewFields <= 0 {
		opts.PreviewFields = def.PreviewFields
	}
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = def.PreviewLimit
	}
	return &Serializer{acc: acc, opts: opts}
}

// Preview returns a short human rendering of v. It never panics.
func (s *Serializer) Preview(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = Unintelligible
		}
	}()

	switch s.acc.Classify(v) {
	case node.Null:
		return "null"
	case node.String:
		return stringOf(v)
	case node.Function:
		return s.source(v)
	case node.Object:
		return s.previewObject(v)
	default:
		return primitiveString(v)
	}
}

// Serialize converts v depth-first. Every composite seen a second time within
// the same call is replaced by a circular marker.
func (s *Serializer) Serialize(v any) Value {
	seen := visited.New(s.acc)
	return s.convert(v, seen, 0, s.opts.MaxDepth, s.opts.MaxFields)
}

func (s *Serializer) previewObject(v any) string {
	if node.Opaque(s.acc, v) {
		return "[object " + node.TypeName(s.acc, v) + "]"
	}

	seen := visited.New(s.acc)
	summary := s.convert(v, seen, 0, s.opts.PreviewDepth, s.opts.PreviewFields)

	b, err := codec.Default.Marshal(summary.Plain())
	if err != nil {
		return "[object " + node.TypeName(s.acc, v) + "]"
	}
	return truncate(string(b), s.opts.PreviewLimit)
}

func (s *Serializer) convert(v any, seen *visited.Set, depth, maxDepth, maxFields int) (out Value) {
	defer func() {
		if r := recover(); r != nil {
			out = Value{Tag: TagUnclonable, TypeName: safeTypeName(s.acc, v)}
		}
	}()

	switch s.acc.Classify(v) {
	case node.Null:
		return Null
	case node.Primitive:
		return Value{Tag: TagPrimitive, Scalar: scalar(v)}
	case node.String:
		return Value{Tag: TagString, Text: stringOf(v)}
	case node.Function:
		return Value{Tag: TagFunction, Text: s.source(v), TypeName: node.TypeName(s.acc, v)}
	}

	typeName := node.TypeName(s.acc, v)
	if node.Opaque(s.acc, v) {
		return Value{Tag: TagUnclonable, TypeName: typeName}
	}
	if !seen.Visit(v) {
		return Value{Tag: TagCircular, TypeName: typeName}
	}
	if depth >= maxDepth {
		return Value{Tag: TagObject, TypeName: typeName, Truncated: true}
	}

	keys, err := node.SafeKeys(s.acc, v)
	if err != nil {
		return Value{Tag: TagUnclonable, TypeName: typeName}
	}

	out = Value{Tag: TagObject, TypeName: typeName}
	for _, key := range keys {
		if len(out.Fields) >= maxFields {
			out.Truncated = true
			break
		}
		child, err := node.SafeGet(s.acc, v, key)
		if err != nil {
			continue
		}
		out.Fields = append(out.Fields, Field{
			Key:   key,
			Value: s.convert(child, seen, depth+1, maxDepth, maxFields),
		})
	}
	out.Array = len(out.Fields) > 0 && isIndexSequence(out.Fields)
	return out
}

func (s *Serializer) source(fn any) string {
	if src, ok := s.acc.(node.Sourcer); ok {
		if text, err := src.Source(fn); err == nil {
			return text
		}
	}
	return "[function " + node.TypeName(s.acc, fn) + "]"
}

func isIndexSequence(fields []Field) bool {
	for i, f := range fields {
		if f.Key != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

// scalar copies a primitive into plain, JSON-safe Go data so the result
// shares nothing with the host value.
func scalar(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f
	default:
		return fmt.Sprint(v)
	}
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return fmt.Sprint(v)
}

func primitiveString(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "null"
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || !rv.CanInterface() {
		return fmt.Sprint(v)
	}
	return fmt.Sprint(rv.Interface())
}

func safeTypeName(acc node.Accessor, v any) (name string) {
	defer func() {
		if recover() != nil {
			name = "unknown"
		}
	}()
	return node.TypeName(acc, v)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
