package codec

import gojson "github.com/goccy/go-json"

var _ Appender = GoJSON{}

// GoJSON is a JSON codec backed by github.com/goccy/go-json.
//
// Output is byte-compatible with encoding/json, so frames written with
// GoJSON decode with JSON and vice versa.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

func (GoJSON) Name() string { return "go-json" }

// Append encodes v into dst. On error dst is returned unchanged.
func (GoJSON) Append(dst []byte, v any) ([]byte, error) {
	b, err := gojson.Marshal(v)
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}
