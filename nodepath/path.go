// Package nodepath implements the textual addressing scheme for nodes in a
// searched graph.
//
// A Path names a node relative to a declared root, for example
//
//	root.config.servers[0]["display name"]
//
// Keys that are barewords use member form (.key), all-digit keys use the
// unquoted index form ([0]), and every other key, including the empty key,
// uses the quoted index form (["a b"]). Parsing and re-serializing a path
// yields the same canonical text.
package nodepath

import (
	"strconv"
	"strings"

	"github.com/hupe1980/graphdig/node"
)

// DefaultRoot is the root name used when none (or an invalid one) is given.
const DefaultRoot = "root"

// Path is an immutable route from a declared root through a sequence of keys.
// The zero value is not a valid path; use Root or Parse.
type Path struct {
	root string
	keys []string
	text string
}

// Root returns the path naming the root itself. Names that are not barewords
// fall back to DefaultRoot.
func Root(name string) Path {
	if !IsIdentifier(name) {
		name = DefaultRoot
	}
	return Path{root: name, text: name}
}

// Append returns a new path one key deeper. p is left untouched.
func (p Path) Append(key string) Path {
	keys := make([]string, len(p.keys)+1)
	copy(keys, p.keys)
	keys[len(p.keys)] = key

	var sb strings.Builder
	sb.Grow(len(p.text) + len(key) + 4)
	sb.WriteString(p.text)
	writeSegment(&sb, key)

	return Path{root: p.root, keys: keys, text: sb.String()}
}

// String returns the canonical text of the path.
func (p Path) String() string { return p.text }

// RootName returns the name of the root the path starts from.
func (p Path) RootName() string { return p.root }

// Len returns the number of keys below the root.
func (p Path) Len() int { return len(p.keys) }

// Keys returns a copy of the key sequence.
func (p Path) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Last returns the final key, or false for a root path.
func (p Path) Last() (string, bool) {
	if len(p.keys) == 0 {
		return "", false
	}
	return p.keys[len(p.keys)-1], true
}

// Parent returns the path one key shallower, or false for a root path.
func (p Path) Parent() (Path, bool) {
	if len(p.keys) == 0 {
		return Path{}, false
	}
	parent := Root(p.root)
	for _, k := range p.keys[:len(p.keys)-1] {
		parent = parent.Append(k)
	}
	return parent, true
}

// IsZero reports whether p is the zero Path.
func (p Path) IsZero() bool { return p.root == "" }

// Equal reports whether p and q name the same route.
func (p Path) Equal(q Path) bool {
	if p.root != q.root || len(p.keys) != len(q.keys) {
		return false
	}
	for i := range p.keys {
		if p.keys[i] != q.keys[i] {
			return false
		}
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.text), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsIdentifier reports whether s is a non-empty run of [A-Za-z0-9_$].
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Resolve walks root through every key of p. It returns false when any step
// is missing, unreadable, null, or not composite, so callers can fail soft.
func Resolve(acc node.Accessor, root any, p Path) (any, bool) {
	cur := root
	for _, key := range p.keys {
		if !acc.Classify(cur).Composite() {
			return nil, false
		}
		v, err := node.SafeGet(acc, cur, key)
		if err != nil || acc.Classify(v) == node.Null {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func writeSegment(sb *strings.Builder, key string) {
	switch {
	case IsNumeric(key):
		sb.WriteByte('[')
		sb.WriteString(key)
		sb.WriteByte(']')
	case IsIdentifier(key):
		sb.WriteByte('.')
		sb.WriteString(key)
	default:
		sb.WriteByte('[')
		sb.WriteString(strconv.Quote(key))
		sb.WriteByte(']')
	}
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '$'
}
