package testutil

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

var words = []string{"user", "token", "config", "session", "items", "name", "id", "value", "meta", "cache"}

// Word returns a random property name.
func (r *RNG) Word() string {
	return words[r.Intn(len(words))]
}

// Graph builds a random graph of n map nodes. Node 0 is returned. Each node
// carries a "label" string and up to fanout edges to random nodes, so cycles
// and shared children are common.
func (r *RNG) Graph(n, fanout int) map[string]any {
	if n <= 0 {
		return map[string]any{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	nodes := make([]map[string]any, n)
	for i := range nodes {
		nodes[i] = map[string]any{"label": "node-" + strconv.Itoa(i)}
	}
	for i, nd := range nodes {
		edges := r.rand.Intn(fanout + 1)
		for e := 0; e < edges; e++ {
			key := fmt.Sprintf("%s%d", words[r.rand.Intn(len(words))], e)
			nd[key] = nodes[r.rand.Intn(n)]
		}
		if i+1 < n {
			// Keep every node reachable from node 0.
			nd["next"] = nodes[i+1]
		}
	}
	return nodes[0]
}

// Chain returns a list of depth nested maps: {"next": {"next": ...}}.
// The innermost map holds "leaf": "end".
func Chain(depth int) map[string]any {
	cur := map[string]any{"leaf": "end"}
	for i := 0; i < depth; i++ {
		cur = map[string]any{"next": cur}
	}
	return cur
}

// Fan returns a map with n children "c0".."c<n-1>", each a map holding its
// index under "i".
func Fan(n int) map[string]any {
	m := make(map[string]any, n)
	for i := 0; i < n; i++ {
		m["c"+strconv.Itoa(i)] = map[string]any{"i": i}
	}
	return m
}

// Ring returns n maps linked in a cycle through "next". Each holds its
// position under "pos".
func Ring(n int) map[string]any {
	if n <= 0 {
		return map[string]any{}
	}
	nodes := make([]map[string]any, n)
	for i := range nodes {
		nodes[i] = map[string]any{"pos": i}
	}
	for i := range nodes {
		nodes[i]["next"] = nodes[(i+1)%n]
	}
	return nodes[0]
}

// ManualExecutor queues run continuations until the test drains them.
type ManualExecutor struct {
	mu    sync.Mutex
	queue []func()
}

// Schedule queues fn.
func (e *ManualExecutor) Schedule(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
}

// Pending returns the number of queued continuations.
func (e *ManualExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Step runs one queued continuation and reports whether there was one.
func (e *ManualExecutor) Step() bool {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return false
	}
	fn := e.queue[0]
	e.queue = e.queue[1:]
	e.mu.Unlock()

	fn()
	return true
}

// Drain runs continuations until none are queued.
func (e *ManualExecutor) Drain() {
	for e.Step() {
	}
}
