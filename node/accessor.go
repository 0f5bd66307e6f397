// Package node defines the narrow capability through which graphdig reads a
// host object graph.
//
// The engine never inspects host values directly. It enumerates keys, reads
// properties, and classifies values through an Accessor supplied by the host.
// Hosts may additionally implement Identifier, Inspector, or Sourcer to
// sharpen identity tracking, type names, and function rendering.
package node

import (
	"errors"
	"fmt"
)

// ErrNoSuchKey is returned by Accessor.Get when a node has no property with
// the requested key.
var ErrNoSuchKey = errors.New("no such key")

// Kind is the closed classification of a host value.
type Kind uint8

const (
	// Null is an absent value (nil, undefined).
	Null Kind = iota
	// Primitive covers booleans and numbers.
	Primitive
	// String is a text value.
	String
	// Function is a callable value. Functions may carry properties.
	Function
	// Object is any composite value with (possibly zero) own properties.
	Object
)

// String returns the lowercase kind name used on the wire.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Primitive:
		return "primitive"
	case String:
		return "string"
	case Function:
		return "function"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Composite reports whether values of this kind can have children.
func (k Kind) Composite() bool {
	return k == Object || k == Function
}

// Accessor is the host-supplied view of the graph.
//
// None of the methods may be assumed total: Get may fail for any key and the
// caller tolerates that per key. Implementations must not mutate the graph.
type Accessor interface {
	// OwnKeys lists the node's own property names in enumeration order.
	OwnKeys(n any) ([]string, error)

	// Get reads one property. A missing key returns ErrNoSuchKey.
	Get(n any, key string) (any, error)

	// Classify maps a value onto the closed Kind variant.
	Classify(v any) Kind
}

// Identifier is implemented by accessors whose host assigns stable ids to
// composite values. When present, visited tracking uses these ids.
type Identifier interface {
	ID(v any) (uint64, bool)
}

// Inspector is implemented by accessors that can name a value's declared
// type and tell which values cannot cross a transport boundary.
type Inspector interface {
	TypeName(v any) string
	Opaque(v any) bool
}

// Sourcer is implemented by accessors that can render a function's source
// text (or the closest thing the host has to it).
type Sourcer interface {
	Source(fn any) (string, error)
}

// TypeName returns the declared type name of v if acc can provide one.
func TypeName(acc Accessor, v any) string {
	if in, ok := acc.(Inspector); ok {
		return in.TypeName(v)
	}
	return acc.Classify(v).String()
}

// Opaque reports whether v is a host handle that cannot be serialized.
func Opaque(acc Accessor, v any) bool {
	if in, ok := acc.(Inspector); ok {
		return in.Opaque(v)
	}
	return false
}

// SafeGet calls acc.Get and converts a host panic into an error.
func SafeGet(acc Accessor, n any, key string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ReadError{Key: key, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	return acc.Get(n, key)
}

// SafeKeys calls acc.OwnKeys and converts a host panic into an error.
func SafeKeys(acc Accessor, n any) (keys []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			keys, err = nil, fmt.Errorf("enumerate keys: panic: %v", r)
		}
	}()

	return acc.OwnKeys(n)
}

// ReadError describes a failed property read.
//
// The original underlying error can be accessed via errors.Unwrap.
type ReadError struct {
	Key   string
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read property %q: %v", e.Key, e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }
