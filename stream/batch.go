package stream

import (
	"fmt"
	"strings"

	"github.com/hupe1980/graphdig/model"
)

// BatchChunk is a chunk of a traversal batch. Every chunk carries the
// batch header (counters, flags, terminal reason) so any one of them
// describes the batch.
type BatchChunk struct {
	Header model.Batch `json:"header"`
	Chunk[model.MatchRecord]
}

// BatchChunks splits b's matches into chunks of at most unit records.
// The stream id distinguishes one batch from another, so it includes the
// batch sequence number.
func BatchChunks(stream string, b model.Batch, unit int) []BatchChunk {
	header := b
	header.Matches = nil

	parts := Split(BatchStreamID(stream, b.Seq), b.Matches, unit)
	out := make([]BatchChunk, len(parts))
	for i, p := range parts {
		out[i] = BatchChunk{Header: header, Chunk: p}
	}
	return out
}

// BatchStreamID names the chunk stream of one batch of a run.
func BatchStreamID(stream string, seq int) string {
	return fmt.Sprintf("%s/%d", stream, seq)
}

// BatchAssembler rebuilds batches from BatchChunks.
type BatchAssembler struct {
	inner *Assembler[model.MatchRecord]
}

// NewBatchAssembler creates an empty BatchAssembler.
func NewBatchAssembler() *BatchAssembler {
	return &BatchAssembler{inner: NewAssembler[model.MatchRecord]()}
}

// Absorb buffers c and returns the whole batch once it is complete.
func (a *BatchAssembler) Absorb(c BatchChunk) (model.Batch, bool, error) {
	records, ok, err := a.inner.Absorb(c.Chunk)
	if err != nil || !ok {
		return model.Batch{}, false, err
	}
	b := c.Header
	b.Matches = records
	return b, true, nil
}

// Reset drops the partial buffers of every batch of one run stream.
func (a *BatchAssembler) Reset(stream string) {
	prefix := stream + "/"
	a.inner.ResetFunc(func(id string) bool { return strings.HasPrefix(id, prefix) })
}

// Clear drops every partial buffer.
func (a *BatchAssembler) Clear() { a.inner.Clear() }

// Pending returns the number of batches with missing chunks.
func (a *BatchAssembler) Pending() int { return a.inner.Pending() }
