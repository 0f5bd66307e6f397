package stream

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultUnit is the number of records per chunk when none is given.
const DefaultUnit = 50

// ErrChunkMismatch is returned when a chunk contradicts the chunks already
// buffered for its stream, or its index is out of range.
var ErrChunkMismatch = errors.New("stream: chunk mismatch")

// Chunk is one wire-sized slice of a record sequence.
type Chunk[T any] struct {
	Stream      string `json:"stream"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	IsChunked   bool   `json:"isChunked"`
	IsLastChunk bool   `json:"isLastChunk"`
	Records     []T    `json:"records"`
}

// Split cuts records into contiguous chunks of at most unit records.
// A sequence that fits in one unit yields a single chunk with IsChunked unset.
func Split[T any](stream string, records []T, unit int) []Chunk[T] {
	if unit <= 0 {
		unit = DefaultUnit
	}
	if len(records) <= unit {
		return []Chunk[T]{{
			Stream:      stream,
			TotalChunks: 1,
			IsLastChunk: true,
			Records:     records,
		}}
	}

	total := (len(records) + unit - 1) / unit
	chunks := make([]Chunk[T], 0, total)
	for i := 0; i < total; i++ {
		lo := i * unit
		hi := min(lo+unit, len(records))
		chunks = append(chunks, Chunk[T]{
			Stream:      stream,
			ChunkIndex:  i,
			TotalChunks: total,
			IsChunked:   true,
			IsLastChunk: i == total-1,
			Records:     records[lo:hi:hi],
		})
	}
	return chunks
}

type buffer[T any] struct {
	total    int
	received [][]T
	present  []bool
	count    int
}

// Assembler reassembles chunked sequences, one buffer per stream id.
// It is safe for concurrent use.
type Assembler[T any] struct {
	mu      sync.Mutex
	buffers map[string]*buffer[T]
}

// NewAssembler creates an empty Assembler.
func NewAssembler[T any]() *Assembler[T] {
	return &Assembler[T]{buffers: make(map[string]*buffer[T])}
}

// Absorb buffers c. It returns the complete sequence and true once every
// chunk of c's stream has arrived, freeing the buffer; otherwise it returns
// false. A repeated chunk index is ignored.
func (a *Assembler[T]) Absorb(c Chunk[T]) ([]T, bool, error) {
	if !c.IsChunked {
		return c.Records, true, nil
	}
	if c.TotalChunks <= 0 || c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return nil, false, fmt.Errorf("%w: index %d of %d", ErrChunkMismatch, c.ChunkIndex, c.TotalChunks)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.buffers[c.Stream]
	if !ok {
		buf = &buffer[T]{
			total:    c.TotalChunks,
			received: make([][]T, c.TotalChunks),
			present:  make([]bool, c.TotalChunks),
		}
		a.buffers[c.Stream] = buf
	}
	if buf.total != c.TotalChunks {
		return nil, false, fmt.Errorf("%w: stream %q expects %d chunks, got %d", ErrChunkMismatch, c.Stream, buf.total, c.TotalChunks)
	}

	if !buf.present[c.ChunkIndex] {
		buf.present[c.ChunkIndex] = true
		buf.received[c.ChunkIndex] = c.Records
		buf.count++
	}
	if buf.count < buf.total {
		return nil, false, nil
	}

	n := 0
	for _, part := range buf.received {
		n += len(part)
	}
	out := make([]T, 0, n)
	for _, part := range buf.received {
		out = append(out, part...)
	}
	delete(a.buffers, c.Stream)
	return out, true, nil
}

// Reset drops the partial buffer of one stream.
func (a *Assembler[T]) Reset(stream string) {
	a.mu.Lock()
	delete(a.buffers, stream)
	a.mu.Unlock()
}

// ResetFunc drops the partial buffers of every stream id for which drop
// returns true.
func (a *Assembler[T]) ResetFunc(drop func(stream string) bool) {
	a.mu.Lock()
	for id := range a.buffers {
		if drop(id) {
			delete(a.buffers, id)
		}
	}
	a.mu.Unlock()
}

// Clear drops every partial buffer.
func (a *Assembler[T]) Clear() {
	a.mu.Lock()
	clear(a.buffers)
	a.mu.Unlock()
}

// Pending returns the number of streams with a partial buffer.
func (a *Assembler[T]) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}
