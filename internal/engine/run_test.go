package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
	"github.com/hupe1980/graphdig/node"
)

// manual queues continuations until the test drains them.
type manual struct{ queue []func() }

func (m *manual) Schedule(fn func()) { m.queue = append(m.queue, fn) }

func (m *manual) drain() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

type collector struct {
	mu      sync.Mutex
	batches []model.Batch
}

func (c *collector) Emit(b model.Batch) {
	c.mu.Lock()
	c.batches = append(c.batches, b)
	c.mu.Unlock()
}

func (c *collector) results() *model.ResultSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs := &model.ResultSet{}
	for _, b := range c.batches {
		rs.Apply(b)
	}
	return rs
}

func (c *collector) emitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b.Matches)
	}
	return n
}

func paths(ms []model.MatchRecord) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Path.String()
	}
	return out
}

func run(t *testing.T, root any, cfg match.Config, opts Options) (*collector, *Run) {
	t.Helper()

	sink := &collector{}
	exec := &manual{}
	r, err := New(Config{
		Accessor: node.NewReflect(),
		Root:     root,
		Policy:   match.New(cfg),
		Options:  opts,
		Executor: exec,
		Sink:     sink,
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	exec.drain()

	require.True(t, r.State().Terminal())
	return sink, r
}

func TestRun_BreadthFirstOrder(t *testing.T) {
	root := map[string]any{
		"user":  map[string]any{"name": "alice", "token": "x"},
		"token": "abc",
	}

	sink, r := run(t, root, match.Config{Term: "token", Mode: match.ModeKeys}, Options{})

	rs := sink.results()
	assert.Equal(t, model.Completed, rs.Reason())
	assert.Equal(t, Completed, r.State())
	assert.Equal(t, []string{"root.token", "root.user.token"}, paths(rs.Matches()))

	m := rs.Matches()[1]
	assert.Equal(t, "token", m.Key)
	assert.Equal(t, "string", m.Type)
	assert.Equal(t, "x", m.Preview)
	assert.Equal(t, 2, m.Depth)

	select {
	case <-r.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestRun_ValueMatching(t *testing.T) {
	root := map[string]any{"foobar": "nofoohere", "other": "nothing"}

	sink, _ := run(t, root, match.Config{Term: "foo", Mode: match.ModeValues}, Options{})
	assert.Equal(t, []string{"root.foobar"}, paths(sink.results().Matches()))
}

func TestRun_CycleSafety(t *testing.T) {
	a := map[string]any{"name": "loop"}
	a["self"] = a

	sink, _ := run(t, a, match.Config{Term: "self", Mode: match.ModeKeys}, Options{MaxDepth: 50})

	rs := sink.results()
	require.Equal(t, []string{"root.self"}, paths(rs.Matches()))
	assert.Equal(t, model.Completed, rs.Reason())
	assert.Equal(t, 1, rs.Matches()[0].Value.CircularCount())
}

type countingAccessor struct {
	node.Reflect
	calls atomic.Int64
}

func (c *countingAccessor) OwnKeys(n any) ([]string, error) {
	c.calls.Add(1)
	return c.Reflect.OwnKeys(n)
}

func TestRun_VisitedOnce(t *testing.T) {
	shared := map[string]any{"secret": "s"}
	root := map[string]any{"a": shared, "b": shared}

	acc := &countingAccessor{}
	sink := &collector{}
	exec := &manual{}
	r, err := New(Config{
		Accessor: acc,
		Root:     root,
		Policy:   match.New(match.Config{Term: "secret", Mode: match.ModeKeys}),
		Executor: exec,
		Sink:     sink,
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	exec.drain()

	assert.Equal(t, []string{"root.a.secret"}, paths(sink.results().Matches()))
	assert.Equal(t, int64(2), acc.calls.Load()) // root + shared
}

func TestRun_SharedNodeMatchesOnEveryPath(t *testing.T) {
	shared := map[string]any{"x": 1}
	root := map[string]any{"left": shared, "right": shared}

	sink, _ := run(t, root, match.Config{Term: "left|right", Mode: match.ModeKeys}, Options{})
	assert.Empty(t, sink.results().Matches())

	sink, _ = run(t, root, match.Config{Term: "t", Mode: match.ModeKeys}, Options{})
	assert.Equal(t, []string{"root.left", "root.right"}, paths(sink.results().Matches()))
}

func wide(n int) map[string]any {
	root := make(map[string]any, n)
	for i := 0; i < n; i++ {
		root[fmt.Sprintf("match%02d", i)] = i
	}
	return root
}

func TestRun_BudgetTermination(t *testing.T) {
	sink, r := run(t, wide(12), match.Config{Term: "match", Mode: match.ModeKeys}, Options{MaxResults: 5})

	assert.Equal(t, 5, sink.emitted())
	rs := sink.results()
	assert.Equal(t, 5, rs.Len())
	assert.Equal(t, model.BudgetExhausted, rs.Reason())
	assert.Equal(t, BudgetExhausted, r.State())
}

func TestRun_CharBudget(t *testing.T) {
	// Each match costs len("root.matchNN") + len("N") or len("NN").
	tests := []struct {
		name       string
		charBudget int
		reason     model.TerminalReason
		matches    int
		skipped    int
	}{
		{"ceiling reached exactly", 39, model.BudgetExhausted, 3, 0},
		{"remainder too small for the rest", 40, model.Completed, 3, 9},
		{"room for everything", 1000, model.Completed, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, _ := run(t, wide(12), match.Config{Term: "match", Mode: match.ModeKeys}, Options{CharBudget: tt.charBudget})

			rs := sink.results()
			assert.Equal(t, tt.reason, rs.Reason())
			assert.Equal(t, tt.matches, rs.Len())

			chars := 0
			for _, m := range rs.Matches() {
				chars += len(m.Path.String()) + len(m.Preview)
			}
			assert.LessOrEqual(t, chars, tt.charBudget)

			final, ok := rs.Final()
			require.True(t, ok)
			assert.Equal(t, tt.skipped, final.Skipped)
		})
	}
}

func TestRun_OversizedMatchIsSkipped(t *testing.T) {
	root := map[string]any{
		"a_hit": strings.Repeat("x", 500),
		"b_hit": "1",
		"c_hit": "2",
	}

	sink, r := run(t, root, match.Config{Term: "hit", Mode: match.ModeKeys}, Options{CharBudget: 100})

	rs := sink.results()
	assert.Equal(t, model.Completed, rs.Reason())
	assert.Equal(t, Completed, r.State())
	assert.Equal(t, []string{"root.b_hit", "root.c_hit"}, paths(rs.Matches()))
}

func TestRun_NullValuesMatchOnPreview(t *testing.T) {
	root := map[string]any{"a": nil, "b": "null", "c": "nullable"}

	tests := []struct {
		name string
		cfg  match.Config
		want []string
	}{
		{"values full", match.Config{Term: "null", Mode: match.ModeValues, Type: match.Full}, []string{"root.a", "root.b"}},
		{"values partial", match.Config{Term: "null", Mode: match.ModeValues}, []string{"root.a", "root.b", "root.c"}},
		{"both", match.Config{Term: "null", Mode: match.ModeBoth, Type: match.Full}, []string{"root.a", "root.b"}},
		{"keys ignore values", match.Config{Term: "null", Mode: match.ModeKeys}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, _ := run(t, root, tt.cfg, Options{})
			assert.Equal(t, tt.want, paths(sink.results().Matches()))
		})
	}

	sink, _ := run(t, root, match.Config{Term: "null", Mode: match.ModeValues, Type: match.Full}, Options{})
	m := sink.results().Matches()[0]
	assert.Equal(t, "null", m.Preview)
	assert.Equal(t, "null", m.Type)
}

func TestRun_FlushAndContinue(t *testing.T) {
	sink, r := run(t, wide(12), match.Config{Term: "match", Mode: match.ModeKeys}, Options{
		MaxResults: 5,
		Budget:     FlushAndContinue,
	})

	require.Len(t, sink.batches, 3)
	assert.True(t, sink.batches[0].BudgetReset)
	assert.Equal(t, 0, sink.batches[0].Offset)
	assert.Len(t, sink.batches[0].Matches, 5)
	assert.True(t, sink.batches[1].BudgetReset)
	assert.Equal(t, 5, sink.batches[1].Offset)

	final := sink.batches[2]
	assert.True(t, final.IsFinal)
	assert.Equal(t, model.Completed, final.TerminalReason)
	assert.Equal(t, 10, final.Offset)
	assert.Len(t, final.Matches, 2)

	assert.Equal(t, 12, sink.results().Len())
	assert.Equal(t, Completed, r.State())
}

func TestRun_FlushCadence(t *testing.T) {
	sink, _ := run(t, wide(7), match.Config{Term: "match", Mode: match.ModeKeys}, Options{FlushEvery: 3})

	require.Len(t, sink.batches, 3)
	for i, b := range sink.batches {
		assert.Equal(t, i, b.Seq)
	}
	assert.Len(t, sink.batches[0].Matches, 3)
	assert.Len(t, sink.batches[1].Matches, 3)
	assert.Len(t, sink.batches[2].Matches, 1)
	assert.True(t, sink.batches[2].IsFinal)
	assert.Equal(t, 1, sink.batches[2].Processed)
}

func TestRun_CancellationPreservesResults(t *testing.T) {
	root := make(map[string]any)
	for i := 0; i < 20; i++ {
		root[fmt.Sprintf("n%02d", i)] = map[string]any{"hit": i, "more": map[string]any{"hit": i}}
	}

	sink := &collector{}
	exec := &manual{}
	r, err := New(Config{
		Accessor: node.NewReflect(),
		Root:     root,
		Policy:   match.New(match.Config{Term: "hit", Mode: match.ModeKeys}),
		Options:  Options{BatchSize: 1, FlushEvery: 2},
		Executor: exec,
		Sink:     sink,
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	for sink.emitted() == 0 {
		require.False(t, r.Step())
	}
	// Leave one match unsent.
	require.False(t, r.Step())

	before := make(map[string]bool)
	for _, b := range sink.batches {
		assert.False(t, b.IsFinal)
		for _, m := range b.Matches {
			before[m.Path.String()] = true
		}
	}

	r.Cancel()
	require.True(t, r.Step())
	assert.Equal(t, Cancelled, r.State())

	final := sink.batches[len(sink.batches)-1]
	require.True(t, final.IsFinal)
	assert.Equal(t, model.Cancelled, final.TerminalReason)
	assert.Equal(t, 0, final.Offset)

	restated := make(map[string]bool)
	for _, m := range final.Matches {
		restated[m.Path.String()] = true
	}
	for p := range before {
		assert.True(t, restated[p], p)
	}
	assert.GreaterOrEqual(t, len(final.Matches), len(before))

	// Later steps do nothing.
	n := len(sink.batches)
	assert.True(t, r.Step())
	assert.Len(t, sink.batches, n)
}

func TestRun_ContextCancel(t *testing.T) {
	exec := &manual{}
	sink := &collector{}
	r, err := New(Config{
		Accessor: node.NewReflect(),
		Root:     wide(3),
		Policy:   match.New(match.Config{Term: "match"}),
		Executor: exec,
		Sink:     sink,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()
	exec.drain()

	assert.Equal(t, Cancelled, r.State())
	require.Len(t, sink.batches, 1)
	assert.Empty(t, sink.batches[0].Matches)
}

func TestRun_BackPressure(t *testing.T) {
	root := make(map[string]any)
	for i := 0; i < 8; i++ {
		root[fmt.Sprintf("n%d", i)] = map[string]any{"leaf": map[string]any{"x": 1}}
	}

	sink, _ := run(t, root, match.Config{Term: "leaf", Mode: match.ModeKeys}, Options{MaxFrontier: 6})

	var reduced *model.Batch
	for i := range sink.batches {
		if sink.batches[i].QueueReduced {
			reduced = &sink.batches[i]
			break
		}
	}
	require.NotNil(t, reduced)
	assert.False(t, reduced.IsFinal)
	assert.Equal(t, 2, reduced.Remaining)

	// Only the shallow survivors were expanded; the run still completes.
	rs := sink.results()
	assert.Equal(t, model.Completed, rs.Reason())
	assert.Less(t, rs.Len(), 8)
}

func TestRun_DepthLimit(t *testing.T) {
	root := map[string]any{"k": map[string]any{"k": map[string]any{"k": map[string]any{"k": 1}}}}

	sink, _ := run(t, root, match.Config{Term: "k", Mode: match.ModeKeys, Type: match.Full}, Options{MaxDepth: 2})
	assert.Equal(t, []string{"root.k", "root.k.k", "root.k.k.k"}, paths(sink.results().Matches()))
}

func TestRun_StructuralDenylist(t *testing.T) {
	root := map[string]any{"constructor": "x", "prototype": 1, "name": "x", "__proto__": map[string]any{"name": 2}}

	sink, _ := run(t, root, match.Config{Term: ""}, Options{})
	assert.Equal(t, []string{"root.name"}, paths(sink.results().Matches()))
	assert.True(t, IsStructural("bind"))
	assert.False(t, IsStructural("name"))
}

func TestRun_ExclusionModes(t *testing.T) {
	rules := match.Rules{Deny: []match.Rule{match.MustRule(`^root\.v[a]ult$`, "")}}
	root := map[string]any{
		"vault": map[string]any{"vault": 1},
		"other": map[string]any{"vault": 2},
	}
	cfg := match.Config{Term: "vault", Mode: match.ModeKeys, Rules: rules}

	tests := []struct {
		mode     ExclusionMode
		want     []string
		excluded []bool
	}{
		{ExcludeBoth, []string{"root.other.vault"}, []bool{false}},
		{ExcludeTraversalOnly, []string{"root.vault", "root.other.vault"}, []bool{true, false}},
		{ExcludeMatchingOnly, []string{"root.other.vault", "root.vault.vault"}, []bool{false, false}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.mode), func(t *testing.T) {
			sink, _ := run(t, root, cfg, Options{Exclusion: tt.mode})
			ms := sink.results().Matches()
			assert.Equal(t, tt.want, paths(ms))
			for i, m := range ms {
				assert.Equal(t, tt.excluded[i], m.Excluded, m.Path.String())
			}
		})
	}
}

type bomb struct{}

type faultyAccessor struct{ node.Reflect }

func (faultyAccessor) ID(v any) (uint64, bool) {
	if _, ok := v.(*bomb); ok {
		panic("host fault")
	}
	return 0, false
}

func TestRun_HostPanicEndsCompleted(t *testing.T) {
	root := map[string]any{"a": "match-me", "b": &bomb{}}

	sink := &collector{}
	exec := &manual{}
	r, err := New(Config{
		Accessor: faultyAccessor{},
		Root:     root,
		Policy:   match.New(match.Config{Term: "a", Mode: match.ModeKeys, Type: match.Full}),
		Executor: exec,
		Sink:     sink,
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	exec.drain()

	rs := sink.results()
	assert.Equal(t, model.Completed, rs.Reason())
	assert.Equal(t, []string{"root.a"}, paths(rs.Matches()))
}

type checkedLocker struct {
	mu   sync.Mutex
	held atomic.Bool
	n    atomic.Int64
}

func (l *checkedLocker) Lock()   { l.mu.Lock(); l.held.Store(true); l.n.Add(1) }
func (l *checkedLocker) Unlock() { l.held.Store(false); l.mu.Unlock() }

func TestRun_HostLockPerBatch(t *testing.T) {
	lock := &checkedLocker{}
	exec := &manual{}
	var emittedUnderLock atomic.Bool
	var statuses []model.Status

	r, err := New(Config{
		Accessor: node.NewReflect(),
		Root:     wide(10),
		Policy:   match.New(match.Config{Term: "match"}),
		Options:  Options{BatchSize: 1, FlushEvery: 1},
		Locker:   lock,
		Executor: exec,
		Sink: SinkFunc(func(model.Batch) {
			if lock.held.Load() {
				emittedUnderLock.Store(true)
			}
		}),
		OnStatus: func(s model.Status) { statuses = append(statuses, s) },
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	exec.drain()

	assert.False(t, emittedUnderLock.Load())
	assert.Equal(t, int64(1), lock.n.Load()) // one node, one batch
	assert.Empty(t, statuses)
}

func TestRun_StatusReportsFrontierHead(t *testing.T) {
	root := map[string]any{"a": map[string]any{"x": 1}, "b": map[string]any{"y": 2}}
	exec := &manual{}
	var statuses []model.Status

	r, err := New(Config{
		Accessor: node.NewReflect(),
		Root:     root,
		Policy:   match.New(match.Config{Term: "zzz"}),
		Options:  Options{BatchSize: 1},
		Executor: exec,
		OnStatus: func(s model.Status) { statuses = append(statuses, s) },
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	exec.drain()

	require.NotEmpty(t, statuses)
	assert.Equal(t, "root.a", statuses[0].Path)
	assert.Equal(t, 1, statuses[0].Depth)
	assert.Equal(t, 2, statuses[0].Queue)
}

func TestRun_GoroutineExecutor(t *testing.T) {
	sink := &collector{}
	r, err := New(Config{
		Accessor: node.NewReflect(),
		Root:     wide(30),
		Policy:   match.New(match.Config{Term: "match"}),
		Sink:     sink,
	})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reason, err := r.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Completed, reason)
	assert.Equal(t, 30, sink.results().Len())

	assert.ErrorIs(t, r.Start(context.Background()), ErrNotIdle)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Root: 1, Policy: match.New(match.Config{})})
	assert.Error(t, err)

	_, err = New(Config{Accessor: node.NewReflect()})
	assert.Error(t, err)

	_, err = New(Config{Accessor: node.NewReflect(), Policy: match.New(match.Config{}), Options: Options{MaxDepth: -1}})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	var oe *OptionError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "MaxDepth", oe.Option)

	r, err := New(Config{Accessor: node.NewReflect(), Policy: match.New(match.Config{})})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), r.Options())
	assert.Equal(t, "root", r.RootPath().String())
	assert.Equal(t, Idle, r.State())
	assert.False(t, r.Step())
}

func TestParseBudgetPolicy(t *testing.T) {
	p, err := ParseBudgetPolicy("continue")
	require.NoError(t, err)
	assert.Equal(t, FlushAndContinue, p)
	assert.Equal(t, "stop", StopAtBudget.String())

	_, err = ParseBudgetPolicy("maybe")
	assert.Error(t, err)
}
