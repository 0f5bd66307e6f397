// Package stream splits record batches into wire-sized chunks and puts them
// back together on the receiving side.
//
// A sender calls Split (or BatchChunks for traversal batches) and hands each
// chunk to whatever channel connects it to the consumer. The consumer feeds
// chunks to an Assembler in arrival order; the Assembler releases the
// original sequence once every chunk of a stream is present. Concatenation
// is always by chunk index, so reordered or repeated deliveries cannot
// corrupt the result.
//
// Frames give chunks a byte representation: a length-prefixed envelope that
// names its codec and optional compression (zstd or lz4).
package stream
