package codec

import (
	"bytes"
	"encoding/json"
)

var _ Appender = JSON{}

// JSON is the standard-library JSON codec.
//
// It is the most portable choice for frames that leave the process, since
// every consumer can read them.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSON) Name() string { return "json" }

// Append encodes v into dst. On error dst is returned unchanged.
func (JSON) Append(dst []byte, v any) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return dst, err
	}
	// Encoder terminates every value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
