package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/graphdig/internal/queue"
	"github.com/hupe1980/graphdig/internal/visited"
	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
	"github.com/hupe1980/graphdig/node"
	"github.com/hupe1980/graphdig/nodepath"
	"github.com/hupe1980/graphdig/serialize"
)

// State is the lifecycle state of a Run.
type State uint8

const (
	// Idle is a run that has not started.
	Idle State = iota
	Running
	Completed
	Cancelled
	BudgetExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case BudgetExhausted:
		return "budget_exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool { return s >= Completed }

func stateOf(reason model.TerminalReason) State {
	switch reason {
	case model.Cancelled:
		return Cancelled
	case model.BudgetExhausted:
		return BudgetExhausted
	default:
		return Completed
	}
}

// Executor schedules a continuation to run soon.
type Executor interface {
	Schedule(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Schedule calls f(fn).
func (f ExecutorFunc) Schedule(fn func()) { f(fn) }

// Goroutine runs every continuation on a fresh goroutine.
var Goroutine Executor = ExecutorFunc(func(fn func()) { go fn() })

// Sink receives the batches of one run, in order, from one goroutine at a
// time.
type Sink interface {
	Emit(b model.Batch)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(b model.Batch)

// Emit calls f(b).
func (f SinkFunc) Emit(b model.Batch) { f(b) }

// Pacer delays batches. *resource.Controller implements it.
type Pacer interface {
	WaitBatch(ctx context.Context) error
}

// Observer receives run telemetry.
type Observer interface {
	ObserveBatch(b model.Batch)
	ObserveQueueReduced(dropped int)
	ObserveRunEnd(reason model.TerminalReason, matches int, elapsed time.Duration)
}

// Config wires a Run to its graph and its surroundings.
type Config struct {
	Accessor node.Accessor
	Root     any

	// RootPath names Root in emitted paths. Zero means nodepath.DefaultRoot.
	RootPath nodepath.Path

	Policy     *match.Policy
	Serializer *serialize.Serializer
	Options    Options

	Logger *slog.Logger

	// Locker, when set, is held for the duration of each batch. Hosts that
	// mutate the graph concurrently take the same lock.
	Locker sync.Locker

	Pacer    Pacer
	Executor Executor
	Sink     Sink
	Observer Observer

	// OnStatus is called after every non-terminal batch.
	OnStatus func(model.Status)
}

type entry struct {
	node any
	path nodepath.Path
}

// Run is one search or explore invocation.
//
// Control methods (Start, Cancel, State, Done, Wait) are safe for concurrent
// use. The traversal state is owned by whichever goroutine is inside Step.
type Run struct {
	acc      node.Accessor
	policy   *match.Policy
	ser      *serialize.Serializer
	opts     Options
	logger   *slog.Logger
	locker   sync.Locker
	pacer    Pacer
	exec     Executor
	sink     Sink
	observer Observer
	onStatus func(model.Status)

	root     any
	rootPath nodepath.Path

	ctx       context.Context
	cancelled atomic.Bool
	stepMu    sync.Mutex

	mu     sync.Mutex
	state  State
	reason model.TerminalReason
	done   chan struct{}

	// Guarded by stepMu.
	frontier  *queue.Frontier[entry]
	visited   *visited.Set
	budget    budget
	window    []model.MatchRecord
	base      int
	sent      int
	seq       int
	processed int
	skipped   int
	total     int
	started   time.Time
	out       []model.Batch
}

// New validates cfg and returns an idle run.
func New(cfg Config) (*Run, error) {
	if cfg.Accessor == nil {
		return nil, errors.New("engine: accessor is required")
	}
	if cfg.Policy == nil {
		return nil, errors.New("engine: match policy is required")
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	r := &Run{
		acc:      cfg.Accessor,
		policy:   cfg.Policy,
		ser:      cfg.Serializer,
		opts:     cfg.Options.WithDefaults(),
		logger:   cfg.Logger,
		locker:   cfg.Locker,
		pacer:    cfg.Pacer,
		exec:     cfg.Executor,
		sink:     cfg.Sink,
		observer: cfg.Observer,
		onStatus: cfg.OnStatus,
		root:     cfg.Root,
		rootPath: cfg.RootPath,
		ctx:      context.Background(),
		done:     make(chan struct{}),
		frontier: queue.New[entry](64),
		visited:  visited.New(cfg.Accessor),
	}
	if r.ser == nil {
		r.ser = serialize.New(cfg.Accessor, serialize.Options{})
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.exec == nil {
		r.exec = Goroutine
	}
	if r.sink == nil {
		r.sink = SinkFunc(func(model.Batch) {})
	}
	if r.rootPath.IsZero() {
		r.rootPath = nodepath.Root(nodepath.DefaultRoot)
	}
	r.budget = newBudget(r.opts)
	return r, nil
}

// Options returns the effective options.
func (r *Run) Options() Options { return r.opts }

// RootPath returns the path the run is rooted at.
func (r *Run) RootPath() nodepath.Path { return r.rootPath }

// Start seeds the frontier with the root and schedules the first batch.
// Cancelling ctx has the same effect as Cancel.
func (r *Run) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Same lock order as Step.
	r.stepMu.Lock()
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		r.stepMu.Unlock()
		return ErrNotIdle
	}
	r.ctx = ctx
	r.started = time.Now()
	r.frontier.Push(entry{node: r.root, path: r.rootPath}, 0)
	r.state = Running
	r.mu.Unlock()
	r.stepMu.Unlock()

	r.logger.DebugContext(ctx, "run started",
		"root", r.rootPath.String(),
		"term", r.policy.Term(),
		"mode", r.policy.Mode().String(),
		"maxDepth", r.opts.MaxDepth,
	)

	r.resumeAfterYield()
	return nil
}

// Cancel requests cancellation. It is observed at the next batch boundary.
func (r *Run) Cancel() { r.cancelled.Store(true) }

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reason returns the terminal reason, or "" while the run is live.
func (r *Run) Reason() model.TerminalReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Done is closed after the terminal batch has been emitted.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends or ctx is done.
func (r *Run) Wait(ctx context.Context) (model.TerminalReason, error) {
	select {
	case <-r.done:
		return r.Reason(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Run) resumeAfterYield() {
	r.exec.Schedule(r.resume)
}

func (r *Run) resume() {
	if !r.Step() {
		r.resumeAfterYield()
	}
}

// Step executes one bounded batch and reports whether the run has ended.
// Stepping a run that has not started does nothing.
func (r *Run) Step() bool {
	r.stepMu.Lock()
	defer r.stepMu.Unlock()

	switch st := r.State(); {
	case st == Idle:
		return false
	case st.Terminal():
		return true
	}

	if r.cancelled.Load() || r.ctx.Err() != nil {
		r.conclude(model.Cancelled)
		return true
	}

	if r.pacer != nil {
		if err := r.pacer.WaitBatch(r.ctx); err != nil {
			r.conclude(model.Cancelled)
			return true
		}
	}

	reason, ended := r.runBatch()
	if ended {
		r.conclude(reason)
		return true
	}

	r.emit()
	r.reportStatus()
	return false
}

// runBatch holds the host lock for exactly one batch.
func (r *Run) runBatch() (reason model.TerminalReason, ended bool) {
	if r.locker != nil {
		r.locker.Lock()
		defer r.locker.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(r.ctx, "traversal batch failed",
				"root", r.rootPath.String(),
				"panic", p,
				"processed", r.processed,
			)
			reason, ended = model.Completed, true
		}
	}()

	start := time.Now()
	for n := 0; n < r.opts.BatchSize; n++ {
		if n > 0 && time.Since(start) >= r.opts.BatchSlice {
			break
		}
		it, ok := r.frontier.Pop()
		if !ok {
			return model.Completed, true
		}
		if !r.expand(it) {
			return model.BudgetExhausted, true
		}
	}

	if r.frontier.Len() == 0 {
		return model.Completed, true
	}
	return "", false
}

// expand enumerates one dequeued node. It returns false when the budget
// halts the run.
func (r *Run) expand(it queue.Item[entry]) bool {
	e := it.Value

	if it.Depth > r.opts.MaxDepth {
		r.skipped++
		return true
	}

	// Children are marked when enqueued; only the root is marked here.
	if it.Depth == 0 {
		if !r.visited.Visit(e.node) {
			r.skipped++
			return true
		}
		if r.opts.Exclusion.skipsTraversal() && r.policy.ShouldExclude(e.path.String(), 0) {
			r.skipped++
			return true
		}
	}

	keys, err := node.SafeKeys(r.acc, e.node)
	if err != nil {
		r.skipped++
		r.logger.DebugContext(r.ctx, "enumerate failed", "path", e.path.String(), "error", err)
		return true
	}
	r.processed++

	for _, key := range keys {
		if IsStructural(key) {
			continue
		}
		child, err := node.SafeGet(r.acc, e.node, key)
		if err != nil {
			continue
		}
		if !r.visitChild(e.path.Append(key), key, child, it.Depth+1) {
			return false
		}
	}
	return true
}

func (r *Run) visitChild(path nodepath.Path, key string, child any, depth int) bool {
	text := path.String()
	kind := classify(r.acc, child)

	excluded := r.policy.ShouldExclude(text, depth)
	if excluded {
		r.skipped++
	}

	if !excluded || !r.opts.Exclusion.skipsMatching() {
		if !r.consider(path, text, key, kind, child, depth, excluded) {
			return false
		}
	}

	if !kind.Composite() || depth > r.opts.MaxDepth {
		return true
	}
	if excluded && r.opts.Exclusion.skipsTraversal() {
		return true
	}
	if !r.visited.Visit(child) {
		return true
	}

	r.frontier.Push(entry{node: child, path: path}, depth)
	if r.frontier.Len() > r.opts.MaxFrontier {
		r.reduceFrontier()
	}
	return true
}

// consider records a match if the pair satisfies the policy. It returns
// false when the budget halts the run.
func (r *Run) consider(path nodepath.Path, text, key string, kind node.Kind, v any, depth int, excluded bool) bool {
	var preview string
	previewed := false
	if r.policy.Mode() != match.ModeKeys {
		preview, previewed = r.ser.Preview(v), true
	}
	if !r.policy.RecordMatches(key, preview, previewed) {
		return true
	}
	if !previewed {
		preview = r.ser.Preview(v)
	}

	cost := len(text) + len(preview)
	if !r.budget.fits(cost) {
		if r.opts.Budget == StopAtBudget {
			if r.budget.exhausted() {
				return false
			}
			// Too large for what is left of the window.
			r.skipped++
			return true
		}
		r.resetWindow()
		if !r.budget.fits(cost) {
			// Larger than a whole window.
			r.skipped++
			return true
		}
	}

	r.window = append(r.window, model.MatchRecord{
		Path:     path,
		Key:      key,
		Type:     kind.String(),
		Preview:  preview,
		Value:    r.ser.Serialize(v),
		Depth:    depth,
		Excluded: excluded,
	})
	r.budget.spend(cost)
	r.total++

	if r.budget.exhausted() {
		if r.opts.Budget == StopAtBudget {
			return false
		}
		r.resetWindow()
		return true
	}

	if len(r.window)-r.sent >= r.opts.FlushEvery {
		r.flush(false, false)
	}
	return true
}

func (r *Run) reduceFrontier() {
	keep := r.opts.MaxFrontier / 3
	dropped := r.frontier.Shrink(keep)
	r.flush(true, false)

	r.logger.WarnContext(r.ctx, "frontier reduced",
		"root", r.rootPath.String(),
		"dropped", dropped,
		"kept", keep,
	)
	if r.observer != nil {
		r.observer.ObserveQueueReduced(dropped)
	}
}

// resetWindow flushes the pending matches and opens a fresh budget window.
func (r *Run) resetWindow() {
	r.logger.InfoContext(r.ctx, "budget window reset",
		"root", r.rootPath.String(),
		"limit", r.budget.exhaustedReason,
		"matches", len(r.window),
	)
	r.flush(false, true)
	r.base += len(r.window)
	r.window = nil
	r.sent = 0
	r.budget.reset()
}

// flush queues a non-final batch of the unsent matches. Flagged flushes are
// queued even when nothing is pending.
func (r *Run) flush(queueReduced, budgetReset bool) {
	pending := r.pending()
	if len(pending) == 0 && !queueReduced && !budgetReset {
		return
	}
	b := r.batch(pending, r.base+r.sent)
	b.QueueReduced = queueReduced
	b.BudgetReset = budgetReset
	r.sent = len(r.window)
	r.out = append(r.out, b)
}

func (r *Run) pending() []model.MatchRecord {
	n := len(r.window)
	return r.window[r.sent:n:n]
}

func (r *Run) batch(matches []model.MatchRecord, offset int) model.Batch {
	if matches == nil {
		matches = []model.MatchRecord{}
	}
	b := model.Batch{
		Seq:       r.seq,
		Offset:    offset,
		Matches:   matches,
		Processed: r.processed,
		Skipped:   r.skipped,
		Remaining: r.frontier.Len(),
	}
	r.seq++
	return b
}

// conclude queues the terminal batch, emits everything and settles the
// run's state. A cancelled run restates its whole window.
func (r *Run) conclude(reason model.TerminalReason) {
	var b model.Batch
	if reason == model.Cancelled {
		n := len(r.window)
		b = r.batch(r.window[:n:n], r.base)
	} else {
		b = r.batch(r.pending(), r.base+r.sent)
	}
	r.sent = len(r.window)
	b.IsFinal = true
	b.TerminalReason = reason
	r.out = append(r.out, b)

	r.emit()

	elapsed := time.Since(r.started)
	r.frontier.Reset()
	r.visited.Reset()
	r.window = nil

	r.mu.Lock()
	r.state = stateOf(reason)
	r.reason = reason
	r.mu.Unlock()

	r.logger.InfoContext(r.ctx, "run finished",
		"root", r.rootPath.String(),
		"reason", string(reason),
		"matches", r.total,
		"processed", r.processed,
		"skipped", r.skipped,
		"batches", r.seq,
		"elapsed", elapsed,
	)
	if r.observer != nil {
		r.observer.ObserveRunEnd(reason, r.total, elapsed)
	}
	close(r.done)
}

// emit hands queued batches to the sink. It runs outside the host lock.
func (r *Run) emit() {
	out := r.out
	r.out = nil
	for _, b := range out {
		r.sink.Emit(b)
		if r.observer != nil {
			r.observer.ObserveBatch(b)
		}
	}
}

func (r *Run) reportStatus() {
	if r.onStatus == nil {
		return
	}
	st := model.Status{
		Queue:     r.frontier.Len(),
		Processed: r.processed,
		Skipped:   r.skipped,
		Matches:   r.total,
	}
	if head, ok := r.frontier.Peek(); ok {
		st.Path = head.Value.path.String()
		st.Depth = head.Depth
	}
	r.onStatus(st)
}

func classify(acc node.Accessor, v any) (k node.Kind) {
	defer func() {
		if recover() != nil {
			k = node.Null
		}
	}()
	return acc.Classify(v)
}
