// Package serialize converts host values into transmissible, cycle-safe
// representations and short human previews.
//
// A serialized Value never holds a reference into the source graph, so it can
// outlive the graph or cross a process boundary.
package serialize

import (
	"bytes"

	"github.com/hupe1980/graphdig/codec"
)

// Tag discriminates the Value variant.
type Tag string

const (
	// TagPrimitive carries a boolean, number, or null in Scalar.
	TagPrimitive Tag = "primitive"
	// TagString carries text in Text.
	TagString Tag = "string"
	// TagFunction carries a function's source rendering in Text.
	TagFunction Tag = "function"
	// TagObject carries an ordered summary of own properties in Fields.
	TagObject Tag = "object"
	// TagCircular marks a composite already emitted earlier in the same value.
	TagCircular Tag = "circular"
	// TagUnclonable stands in for a host handle that cannot be carried.
	TagUnclonable Tag = "unclonable"
	// TagError stands in for a value whose read failed.
	TagError Tag = "error"
)

// Value is the tagged, transmissible form of a host value.
type Value struct {
	Tag       Tag     `json:"tag"`
	Scalar    any     `json:"scalar,omitempty"`
	Text      string  `json:"text,omitempty"`
	TypeName  string  `json:"typeName,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Array     bool    `json:"array,omitempty"`
	Truncated bool    `json:"truncated,omitempty"`
}

// Field is one own property of an object summary.
type Field struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// Null is the serialized form of an absent value.
var Null = Value{Tag: TagPrimitive}

// CircularCount returns how many circular markers v contains.
func (v Value) CircularCount() int {
	if v.Tag == TagCircular {
		return 1
	}
	n := 0
	for _, f := range v.Fields {
		n += f.Value.CircularCount()
	}
	return n
}

// Plain converts v into plain Go data (nil, bool, numbers, strings, slices,
// and ordered objects) suitable for compact JSON rendering.
func (v Value) Plain() any {
	switch v.Tag {
	case TagPrimitive:
		return v.Scalar
	case TagString:
		return v.Text
	case TagFunction:
		return "[Function]"
	case TagCircular:
		return "[Circular]"
	case TagUnclonable:
		return "[Unclonable " + v.TypeName + "]"
	case TagError:
		return "[Error]"
	case TagObject:
		if v.Array {
			items := make([]any, len(v.Fields))
			for i, f := range v.Fields {
				items[i] = f.Value.Plain()
			}
			return items
		}
		obj := make(ordered, len(v.Fields))
		for i, f := range v.Fields {
			obj[i] = orderedField{key: f.Key, value: f.Value.Plain()}
		}
		return obj
	default:
		return nil
	}
}

type orderedField struct {
	key   string
	value any
}

// ordered renders as a JSON object that keeps enumeration order.
type ordered []orderedField

// MarshalJSON implements json.Marshaler.
func (o ordered) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := codec.Default.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := codec.Default.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
