// Package visited tracks which graph nodes a traversal has already claimed.
package visited

import (
	"reflect"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphdig/node"
)

// ref is the identity of a reference-like Go value. The type is part of the
// key because a struct pointer and a pointer to its first field share an
// address.
type ref struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// Set is an identity-keyed set of nodes.
//
// Hosts that implement node.Identifier are tracked by their ids in a roaring
// bitmap. All other values are tracked by reference identity; values without
// one (plain structs, arrays, scalars) cannot form cycles on their own and are
// never reported as visited.
//
// Set is NOT thread-safe. It is owned by a single run.
type Set struct {
	ider node.Identifier
	ids  *roaring64.Bitmap
	refs map[ref]struct{}
}

// New creates a set for values read through acc.
func New(acc node.Accessor) *Set {
	s := &Set{refs: make(map[ref]struct{})}
	if ider, ok := acc.(node.Identifier); ok {
		s.ider = ider
		s.ids = roaring64.New()
	}
	return s
}

// Visit marks v as visited and reports whether it was new.
func (s *Set) Visit(v any) bool {
	if s.ider != nil {
		if id, ok := s.ider.ID(v); ok {
			return s.ids.CheckedAdd(id)
		}
	}

	r, ok := identity(v)
	if !ok {
		return true
	}
	if _, seen := s.refs[r]; seen {
		return false
	}
	s.refs[r] = struct{}{}
	return true
}

// Visited reports whether v has been marked.
func (s *Set) Visited(v any) bool {
	if s.ider != nil {
		if id, ok := s.ider.ID(v); ok {
			return s.ids.Contains(id)
		}
	}

	r, ok := identity(v)
	if !ok {
		return false
	}
	_, seen := s.refs[r]
	return seen
}

// Len returns the number of tracked identities.
func (s *Set) Len() int {
	n := len(s.refs)
	if s.ids != nil {
		n += int(s.ids.GetCardinality())
	}
	return n
}

// Reset clears the set for reuse.
func (s *Set) Reset() {
	clear(s.refs)
	if s.ids != nil {
		s.ids.Clear()
	}
}

func identity(v any) (ref, bool) {
	if v == nil {
		return ref{}, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return ref{}, false
		}
		return ref{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Pointer:
		// Zero-sized allocations may share one address.
		if rv.IsNil() || rv.Type().Elem().Size() == 0 {
			return ref{}, false
		}
		return ref{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 {
			return ref{}, false
		}
		return ref{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	default:
		return ref{}, false
	}
}
