// Package codec centralizes how graphdig turns records into bytes.
//
// Chunk frames name the codec they were written with, so a decoder can pick
// the matching codec by name instead of assuming the default.
package codec

import "strings"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used for previews and frames when none is configured.
var Default Codec = GoJSON{}

// Appender is implemented by codecs that can encode into a caller buffer.
type Appender interface {
	Append(dst []byte, v any) ([]byte, error)
}

// ByName looks up a built-in codec. Names are case-insensitive and the
// empty name selects Default.
func ByName(name string) (Codec, bool) {
	switch strings.ToLower(name) {
	case "":
		return Default, true
	case "json":
		return JSON{}, true
	case "go-json", "gojson":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// AppendLine encodes v with c, appends it to dst and terminates it with a
// newline. A nil codec selects Default.
func AppendLine(c Codec, dst []byte, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	if a, ok := c.(Appender); ok {
		out, err := a.Append(dst, v)
		if err != nil {
			return dst, err
		}
		return append(out, '\n'), nil
	}
	b, err := c.Marshal(v)
	if err != nil {
		return dst, err
	}
	dst = append(dst, b...)
	return append(dst, '\n'), nil
}
