package graphdig

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hupe1980/graphdig/internal/engine"
	"github.com/hupe1980/graphdig/internal/expand"
	"github.com/hupe1980/graphdig/internal/resource"
	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
	"github.com/hupe1980/graphdig/node"
	"github.com/hupe1980/graphdig/nodepath"
	"github.com/hupe1980/graphdig/serialize"
)

// ExpandResult is the outcome of Expand.
type ExpandResult = expand.Result

// Digger searches and expands one object graph.
//
// All methods are safe for concurrent use. Each search runs independently
// with its own frontier, visited set and budget.
type Digger struct {
	root     any
	rootPath nodepath.Path
	acc      node.Accessor
	opts     options

	ser          *serialize.Serializer
	expander     *expand.Expander
	expandPolicy *match.Policy
	rc           *resource.Controller

	runs   *xsync.MapOf[string, *Stream]
	admit  sync.Mutex
	closed atomic.Bool
}

// New creates a Digger over root. A nil accessor reads plain Go values
// through reflection.
//
// Example:
//
//	d := graphdig.New(doc, nil, graphdig.WithRootName("window"))
//	s, err := d.Search(ctx, "token", graphdig.DefaultSearchOptions())
func New(root any, acc node.Accessor, optFns ...Option) *Digger {
	if acc == nil {
		acc = node.NewReflect()
	}
	opts := applyOptions(optFns)

	ser := serialize.New(acc, opts.serializer)
	d := &Digger{
		root:     root,
		rootPath: nodepath.Root(opts.rootName),
		acc:      acc,
		opts:     opts,
		ser:      ser,
		expander: expand.New(acc, ser, opts.logger.Logger),
		rc: resource.NewController(resource.Config{
			MaxRuns:          opts.maxRuns,
			BatchesPerSecond: opts.batchesPerSecond,
			BatchBurst:       opts.batchBurst,
		}),
		runs: xsync.NewMapOf[string, *Stream](),
	}
	if opts.expandRules != nil {
		d.expandPolicy = match.New(match.Config{Rules: *opts.expandRules})
	}
	return d
}

// RootPath returns the path of the graph root.
func (d *Digger) RootPath() nodepath.Path { return d.rootPath }

// ActiveRuns returns the number of runs holding an admission slot.
func (d *Digger) ActiveRuns() int { return int(d.rc.ActiveRuns()) }

// Search starts a run over the whole graph.
//
// The returned stream yields partial batches followed by exactly one
// terminal batch. Cancelling ctx cancels the run.
func (d *Digger) Search(ctx context.Context, term string, so SearchOptions) (*Stream, error) {
	return d.start(ctx, d.root, d.rootPath, term, so)
}

// Explore starts a run rooted at the node path names. Paths that do not
// resolve to an expandable node yield a NotFound stream that ends Completed
// with no matches. A malformed path fails with nodepath.ErrInvalidPath.
func (d *Digger) Explore(ctx context.Context, path, term string, so SearchOptions) (*Stream, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	p, err := nodepath.Parse(path)
	if err != nil {
		return nil, err
	}

	target, ok := d.resolve(p)
	if !ok {
		d.opts.logger.DebugContext(ctx, "explore target not found", "path", p.String())
		return notFoundStream(uuid.NewString(), p), nil
	}
	return d.start(ctx, target, p, term, so)
}

// Expand lists up to limit own properties of the node path names.
// A limit <= 0 selects the default of 1000.
func (d *Digger) Expand(ctx context.Context, path string, limit int) (ExpandResult, error) {
	if d.closed.Load() {
		return ExpandResult{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return ExpandResult{}, err
	}
	p, err := nodepath.Parse(path)
	if err != nil {
		d.opts.logger.LogExpand(ctx, path, 0, err)
		return ExpandResult{}, err
	}

	start := time.Now()
	var res ExpandResult
	if p.RootName() != d.rootPath.RootName() {
		res = ExpandResult{Path: p, NotFound: true}
	} else {
		res = d.expandLocked(p, limit)
	}

	d.opts.metricsCollector.RecordExpand(len(res.Properties), res.NotFound, time.Since(start))
	d.opts.logger.LogExpand(ctx, p.String(), len(res.Properties), nil)
	return res, nil
}

func (d *Digger) expandLocked(p nodepath.Path, limit int) ExpandResult {
	if d.opts.locker != nil {
		d.opts.locker.Lock()
		defer d.opts.locker.Unlock()
	}
	return d.expander.Expand(d.root, p, expand.Options{Limit: limit, Policy: d.expandPolicy})
}

// Cancel requests cancellation of the run with the given handle. It
// reports whether such a run was active.
func (d *Digger) Cancel(handle string) bool {
	s, ok := d.runs.Load(handle)
	if !ok {
		return false
	}
	s.Cancel()
	return true
}

// Close cancels every active run and rejects new ones. It waits up to the
// configured grace period for the runs to emit their terminal batches.
func (d *Digger) Close() error {
	if d == nil || !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.admit.Lock()
	defer d.admit.Unlock()
	d.cancelActive(context.Background())
	return nil
}

func (d *Digger) resolve(p nodepath.Path) (any, bool) {
	if p.RootName() != d.rootPath.RootName() {
		return nil, false
	}
	if d.opts.locker != nil {
		d.opts.locker.Lock()
		defer d.opts.locker.Unlock()
	}
	target, ok := nodepath.Resolve(d.acc, d.root, p)
	if !ok || !d.acc.Classify(target).Composite() {
		return nil, false
	}
	return target, true
}

func (d *Digger) start(ctx context.Context, root any, rootPath nodepath.Path, term string, so SearchOptions) (*Stream, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	eo := so.engineOptions()
	if err := eo.Validate(); err != nil {
		return nil, translateError(err)
	}
	policy := match.New(match.Config{
		Mode:  so.Mode,
		Type:  so.Match,
		Term:  term,
		Rules: d.opts.rules,
	})

	d.admit.Lock()
	defer d.admit.Unlock()

	if d.opts.exclusive {
		d.cancelActive(ctx)
	}
	if err := d.acquireRun(ctx); err != nil {
		return nil, err
	}

	handle := uuid.NewString()
	s := newStream(handle, rootPath)
	run, err := engine.New(engine.Config{
		Accessor:   d.acc,
		Root:       root,
		RootPath:   rootPath,
		Policy:     policy,
		Serializer: d.ser,
		Options:    eo,
		Logger:     d.opts.logger.WithHandle(handle).Logger,
		Locker:     d.opts.locker,
		Pacer:      d.rc,
		Executor:   d.opts.executor,
		Sink:       engine.SinkFunc(s.push),
		Observer:   &runObserver{metrics: d.opts.metricsCollector},
		OnStatus: func(st model.Status) {
			s.setStatus(st)
			if so.OnStatus != nil {
				so.OnStatus(st)
			}
		},
	})
	if err != nil {
		d.rc.ReleaseRun()
		return nil, translateError(err)
	}
	s.run = run
	s.done = run.Done()

	d.runs.Store(handle, s)
	if err := run.Start(ctx); err != nil {
		d.runs.Delete(handle)
		d.rc.ReleaseRun()
		return nil, translateError(err)
	}

	go func() {
		<-run.Done()
		d.runs.Delete(handle)
		d.rc.ReleaseRun()
	}()
	return s, nil
}

func (d *Digger) acquireRun(ctx context.Context) error {
	if d.opts.rejectWhenBusy {
		return d.rc.TryAcquireRun()
	}
	return d.rc.AcquireRun(ctx)
}

// cancelActive cancels every active run and waits, bounded by the grace
// period, for their terminal batches. The caller holds d.admit.
func (d *Digger) cancelActive(ctx context.Context) {
	var active []*Stream
	d.runs.Range(func(_ string, s *Stream) bool {
		active = append(active, s)
		return true
	})
	if len(active) == 0 {
		return
	}
	for _, s := range active {
		s.Cancel()
	}

	timer := time.NewTimer(d.opts.grace)
	defer timer.Stop()
	for _, s := range active {
		select {
		case <-s.Done():
		case <-timer.C:
			d.opts.logger.WarnContext(ctx, "replaced runs still active after grace",
				"grace", d.opts.grace,
				"runs", len(active),
			)
			return
		case <-ctx.Done():
			return
		}
	}
}
