package nodepath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned (wrapped in *InvalidPathError) for malformed
// path text.
var ErrInvalidPath = errors.New("invalid path")

// InvalidPathError describes where and why path text failed to parse.
type InvalidPathError struct {
	Text   string
	Offset int
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q at offset %d: %s", e.Text, e.Offset, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// Parse reads path text into a Path.
//
// Accepted segments are .ident, [digits], [ident], ["quoted"] and
// ['quoted']. Double-quoted keys use Go string escapes; single-quoted keys
// only recognize \' and \\.
func Parse(text string) (Path, error) {
	p := &parser{text: text}
	return p.parse()
}

// MustParse is like Parse but panics on error. Use it for constants in
// tests and examples.
func MustParse(text string) Path {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	text string
	pos  int
}

func (p *parser) fail(reason string) (Path, error) {
	return Path{}, &InvalidPathError{Text: p.text, Offset: p.pos, Reason: reason}
}

func (p *parser) parse() (Path, error) {
	root := p.ident()
	if root == "" {
		return p.fail("missing root name")
	}

	path := Root(root)
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case '.':
			p.pos++
			key := p.ident()
			if key == "" {
				return p.fail("empty member name")
			}
			path = path.Append(key)
		case '[':
			p.pos++
			key, err := p.index()
			if err != nil {
				return Path{}, err
			}
			path = path.Append(key)
		case ']':
			return p.fail("unbalanced ']'")
		default:
			return p.fail(fmt.Sprintf("unexpected character %q", p.text[p.pos]))
		}
	}
	return path, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.text) && isIdentByte(p.text[p.pos]) {
		p.pos++
	}
	return p.text[start:p.pos]
}

// index parses the body of a bracket segment; p.pos is just past '['.
func (p *parser) index() (string, error) {
	if p.pos >= len(p.text) {
		_, err := p.fail("unbalanced '['")
		return "", err
	}

	var key string
	switch p.text[p.pos] {
	case '"':
		end, ok := p.scanQuoted('"')
		if !ok {
			_, err := p.fail("unterminated quoted key")
			return "", err
		}
		unq, err := strconv.Unquote(p.text[p.pos : end+1])
		if err != nil {
			_, ferr := p.fail("malformed quoted key")
			return "", ferr
		}
		key = unq
		p.pos = end + 1
	case '\'':
		end, ok := p.scanQuoted('\'')
		if !ok {
			_, err := p.fail("unterminated quoted key")
			return "", err
		}
		key = unescapeSingle(p.text[p.pos+1 : end])
		p.pos = end + 1
	default:
		key = p.ident()
		if key == "" {
			_, err := p.fail("empty or malformed index")
			return "", err
		}
	}

	if p.pos >= len(p.text) || p.text[p.pos] != ']' {
		_, err := p.fail("unbalanced '['")
		return "", err
	}
	p.pos++
	return key, nil
}

// scanQuoted returns the offset of the closing quote matching the one at p.pos.
func (p *parser) scanQuoted(q byte) (int, bool) {
	for i := p.pos + 1; i < len(p.text); i++ {
		switch p.text[i] {
		case '\\':
			i++
		case q:
			return i, true
		}
	}
	return 0, false
}

func unescapeSingle(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\'' || s[i+1] == '\\') {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
