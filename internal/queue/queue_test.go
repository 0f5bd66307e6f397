package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontier_FIFO(t *testing.T) {
	f := New[string](0)
	for i, v := range []string{"a", "b", "c", "d", "e", "f"} {
		f.Push(v, i)
	}
	require.Equal(t, 6, f.Len())

	head, ok := f.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", head.Value)

	var got []string
	for {
		it, ok := f.Pop()
		if !ok {
			break
		}
		got = append(got, it.Value)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, got)

	_, ok = f.Peek()
	assert.False(t, ok)
}

func TestFrontier_WrapAround(t *testing.T) {
	f := New[int](4)
	f.Push(1, 0)
	f.Push(2, 0)
	f.Pop()
	f.Push(3, 0)
	f.Push(4, 0)
	f.Push(5, 0) // wraps
	f.Push(6, 0) // grows

	var got []int
	for f.Len() > 0 {
		it, _ := f.Pop()
		got = append(got, it.Value)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6}, got)
}

func TestFrontier_ShrinkKeepsLowestDepths(t *testing.T) {
	f := New[string](4)
	f.Push("d3", 3)
	f.Push("a1", 1)
	f.Push("c2", 2)
	f.Push("b1", 1)
	f.Push("e2", 2)

	dropped := f.Shrink(3)
	assert.Equal(t, 2, dropped)
	require.Equal(t, 3, f.Len())

	var got []string
	for f.Len() > 0 {
		it, _ := f.Pop()
		got = append(got, it.Value)
	}
	// Equal depths keep queue order.
	assert.Equal(t, []string{"a1", "b1", "c2"}, got)
}

func TestFrontier_ShrinkNoop(t *testing.T) {
	f := New[int](4)
	f.Push(1, 0)
	assert.Zero(t, f.Shrink(5))
	assert.Equal(t, 1, f.Len())

	f.Push(2, 1)
	assert.Equal(t, 2, f.Shrink(0))
	assert.Zero(t, f.Len())

	f.Push(3, 0)
	it, ok := f.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, it.Value)
}

func TestFrontier_Reset(t *testing.T) {
	f := New[int](2)
	f.Push(1, 0)
	f.Push(2, 0)
	f.Reset()
	assert.Zero(t, f.Len())
	f.Push(3, 0)
	it, _ := f.Pop()
	assert.Equal(t, 3, it.Value)
}
