package stream

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		n, unit    int
		wantChunks int
		chunked    bool
	}{
		{"empty", 0, 50, 1, false},
		{"exactly one unit", 50, 50, 1, false},
		{"one over", 51, 50, 2, true},
		{"many", 237, 50, 5, true},
		{"default unit", 120, 0, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split("s", sequence(tt.n), tt.unit)
			require.Len(t, chunks, tt.wantChunks)

			total := 0
			for i, c := range chunks {
				assert.Equal(t, tt.chunked, c.IsChunked)
				assert.Equal(t, i, c.ChunkIndex)
				assert.Equal(t, tt.wantChunks, c.TotalChunks)
				assert.Equal(t, i == len(chunks)-1, c.IsLastChunk)
				total += len(c.Records)
			}
			assert.Equal(t, tt.n, total)
		})
	}
}

func TestAssembler_ReverseOrder(t *testing.T) {
	records := sequence(237)
	chunks := Split("run-1", records, 50)
	require.Len(t, chunks, 5)
	assert.Len(t, chunks[4].Records, 37)

	a := NewAssembler[int]()
	for i := len(chunks) - 1; i > 0; i-- {
		out, ok, err := a.Absorb(chunks[i])
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, out)
	}
	assert.Equal(t, 1, a.Pending())

	out, ok, err := a.Absorb(chunks[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, records, out)
	assert.Zero(t, a.Pending())
}

func TestAssembler_AnyOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(400)
		unit := 1 + rng.Intn(60)
		records := sequence(n)
		chunks := Split("s", records, unit)
		rng.Shuffle(len(chunks), func(i, j int) { chunks[i], chunks[j] = chunks[j], chunks[i] })

		a := NewAssembler[int]()
		var got []int
		for _, c := range chunks {
			out, ok, err := a.Absorb(c)
			require.NoError(t, err)
			if ok {
				got = out
			}
		}
		assert.Equal(t, records, got, "n=%d unit=%d", n, unit)
	}
}

func TestAssembler_DuplicateChunk(t *testing.T) {
	chunks := Split("s", sequence(10), 4)
	a := NewAssembler[int]()

	_, ok, err := a.Absorb(chunks[1])
	require.NoError(t, err)
	assert.False(t, ok)

	// Redelivery of the same index does not count twice.
	_, ok, err = a.Absorb(chunks[1])
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = a.Absorb(chunks[2])
	assert.False(t, ok)

	out, ok, err := a.Absorb(chunks[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sequence(10), out)
}

func TestAssembler_IndependentStreams(t *testing.T) {
	a := NewAssembler[int]()
	first := Split("a", sequence(6), 3)
	second := Split("b", []int{9, 8, 7, 6}, 2)

	_, _, _ = a.Absorb(first[1])
	_, _, _ = a.Absorb(second[0])
	assert.Equal(t, 2, a.Pending())

	out, ok, err := a.Absorb(second[1])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{9, 8, 7, 6}, out)

	out, ok, _ = a.Absorb(first[0])
	require.True(t, ok)
	assert.Equal(t, sequence(6), out)
}

func TestAssembler_Mismatch(t *testing.T) {
	a := NewAssembler[int]()

	_, _, err := a.Absorb(Chunk[int]{Stream: "s", IsChunked: true, ChunkIndex: 3, TotalChunks: 3})
	assert.ErrorIs(t, err, ErrChunkMismatch)

	_, _, err = a.Absorb(Chunk[int]{Stream: "s", IsChunked: true, ChunkIndex: 0, TotalChunks: 3})
	require.NoError(t, err)
	_, _, err = a.Absorb(Chunk[int]{Stream: "s", IsChunked: true, ChunkIndex: 1, TotalChunks: 4})
	assert.ErrorIs(t, err, ErrChunkMismatch)
}

func TestAssembler_ResetAndClear(t *testing.T) {
	a := NewAssembler[int]()
	_, _, _ = a.Absorb(Split("a", sequence(6), 3)[0])
	_, _, _ = a.Absorb(Split("b", sequence(6), 3)[0])
	require.Equal(t, 2, a.Pending())

	a.Reset("a")
	assert.Equal(t, 1, a.Pending())

	a.Clear()
	assert.Zero(t, a.Pending())
}

func TestAssembler_Unchunked(t *testing.T) {
	a := NewAssembler[int]()
	out, ok, err := a.Absorb(Split("s", []int{1, 2}, 50)[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, out)
	assert.Zero(t, a.Pending())
}
