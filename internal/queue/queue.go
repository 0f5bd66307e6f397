// Package queue provides the traversal frontier: a FIFO of pending items
// that can be pruned to its shallowest entries under memory pressure.
package queue

import "sort"

// Item is one pending node in the frontier.
type Item[T any] struct {
	Value T
	Depth int
}

// Frontier is a growable ring buffer of items.
// Value-based storage; not safe for concurrent use.
type Frontier[T any] struct {
	items []Item[T]
	head  int
	size  int
}

// New creates a frontier with the given initial capacity.
func New[T any](capacity int) *Frontier[T] {
	if capacity < 4 {
		capacity = 4
	}
	return &Frontier[T]{items: make([]Item[T], capacity)}
}

// Len returns the number of queued items.
func (f *Frontier[T]) Len() int { return f.size }

// Push appends an item at the tail.
func (f *Frontier[T]) Push(value T, depth int) {
	if f.size == len(f.items) {
		f.grow()
	}
	f.items[(f.head+f.size)%len(f.items)] = Item[T]{Value: value, Depth: depth}
	f.size++
}

// Pop removes and returns the head item.
func (f *Frontier[T]) Pop() (Item[T], bool) {
	if f.size == 0 {
		return Item[T]{}, false
	}
	it := f.items[f.head]
	f.items[f.head] = Item[T]{} // release the reference
	f.head = (f.head + 1) % len(f.items)
	f.size--
	return it, true
}

// Peek returns the head item without removing it.
func (f *Frontier[T]) Peek() (Item[T], bool) {
	if f.size == 0 {
		return Item[T]{}, false
	}
	return f.items[f.head], true
}

// Shrink keeps only the keep lowest-depth items and returns how many were
// dropped. Items of equal depth keep their queue order, so the surviving
// frontier is still breadth-first.
func (f *Frontier[T]) Shrink(keep int) int {
	if keep < 0 {
		keep = 0
	}
	if f.size <= keep {
		return 0
	}

	all := f.drain()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Depth < all[j].Depth })

	dropped := len(all) - keep
	clear(all[keep:])
	f.items = all
	f.head = 0
	f.size = keep
	return dropped
}

// Reset empties the frontier, releasing every reference.
func (f *Frontier[T]) Reset() {
	clear(f.items)
	f.head = 0
	f.size = 0
}

func (f *Frontier[T]) drain() []Item[T] {
	out := make([]Item[T], f.size)
	for i := 0; i < f.size; i++ {
		out[i] = f.items[(f.head+i)%len(f.items)]
	}
	return out
}

func (f *Frontier[T]) grow() {
	next := make([]Item[T], len(f.items)*2)
	for i := 0; i < f.size; i++ {
		next[i] = f.items[(f.head+i)%len(f.items)]
	}
	f.items = next
	f.head = 0
}
