package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/graphdig/codec"
)

// ErrCorruptFrame is returned when a frame cannot be decoded.
var ErrCorruptFrame = errors.New("stream: corrupt frame")

// Compression selects how frame payloads are compressed.
type Compression uint8

const (
	// CompressionNone stores payloads as encoded.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

// String returns the flag name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression accepts "none", "lz4" and "zstd". The empty string
// selects CompressionNone.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

// MaxFrameSize bounds a single frame body.
const MaxFrameSize = 64 << 20

// Frame layout (little endian):
//
//	[bodyLen uint32][compression uint8][nameLen uint8][name][rawLen uint32][payload]
//
// bodyLen counts every byte after itself. rawLen is the payload size before
// compression. A compressed payload that would not shrink is stored raw
// with compression set to none.
const frameFixed = 1 + 1 + 4

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encoder writes values as frames.
// Not safe for concurrent use.
type Encoder struct {
	w           io.Writer
	codec       codec.Codec
	compression Compression
	buf         []byte
}

// NewEncoder creates an Encoder. A nil codec selects codec.Default.
func NewEncoder(w io.Writer, c codec.Codec, compression Compression) *Encoder {
	if c == nil {
		c = codec.Default
	}
	return &Encoder{w: w, codec: c, compression: compression}
}

// Encode writes v as one frame.
func (e *Encoder) Encode(v any) error {
	raw, err := e.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("stream: encode: %w", err)
	}

	payload, mode := compress(raw, e.compression)

	name := e.codec.Name()
	if len(name) > 255 {
		return fmt.Errorf("stream: codec name too long: %q", name)
	}

	body := frameFixed + len(name) + len(payload)
	if body > MaxFrameSize {
		return fmt.Errorf("stream: frame of %d bytes exceeds limit", body)
	}

	e.buf = e.buf[:0]
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(body))
	e.buf = append(e.buf, byte(mode), byte(len(name)))
	e.buf = append(e.buf, name...)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(raw)))
	e.buf = append(e.buf, payload...)

	_, err = e.w.Write(e.buf)
	return err
}

// Decoder reads frames written by an Encoder.
// Not safe for concurrent use.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a Decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next frame into v. It returns io.EOF when the input ends
// cleanly between frames.
func (d *Decoder) Decode(v any) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%w: %w", ErrCorruptFrame, err)
	}

	body := binary.LittleEndian.Uint32(lenBuf[:])
	if body < frameFixed || body > MaxFrameSize {
		return fmt.Errorf("%w: body length %d", ErrCorruptFrame, body)
	}

	if cap(d.buf) < int(body) {
		d.buf = make([]byte, body)
	}
	buf := d.buf[:body]
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptFrame, err)
	}

	mode := Compression(buf[0])
	nameLen := int(buf[1])
	if frameFixed+nameLen > len(buf) {
		return fmt.Errorf("%w: codec name overruns frame", ErrCorruptFrame)
	}
	name := string(buf[2 : 2+nameLen])
	rawLen := binary.LittleEndian.Uint32(buf[2+nameLen:])
	payload := buf[frameFixed+nameLen:]

	c, ok := codec.ByName(name)
	if !ok {
		return fmt.Errorf("%w: unknown codec %q", ErrCorruptFrame, name)
	}

	raw, err := decompress(payload, mode, rawLen)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptFrame, err)
	}

	if err := c.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptFrame, err)
	}
	return nil
}

func compress(raw []byte, mode Compression) ([]byte, Compression) {
	if len(raw) == 0 {
		return raw, CompressionNone
	}

	var out []byte
	switch mode {
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil || n == 0 {
			return raw, CompressionNone // incompressible
		}
		out = dst[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	default:
		return raw, CompressionNone
	}

	if len(out) >= len(raw) {
		return raw, CompressionNone
	}
	return out, mode
}

func decompress(payload []byte, mode Compression, rawLen uint32) ([]byte, error) {
	if rawLen > MaxFrameSize {
		return nil, fmt.Errorf("raw length %d exceeds limit", rawLen)
	}

	switch mode {
	case CompressionNone:
		if uint32(len(payload)) != rawLen {
			return nil, errors.New("size mismatch")
		}
		return payload, nil

	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != rawLen {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != rawLen {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown compression %d", mode)
	}
}
