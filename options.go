package graphdig

import (
	"sync"
	"time"

	"github.com/hupe1980/graphdig/internal/engine"
	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/nodepath"
	"github.com/hupe1980/graphdig/serialize"
)

// DefaultGrace bounds how long an exclusive run waits for the runs it
// replaces.
const DefaultGrace = 100 * time.Millisecond

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	rootName         string
	rules            match.Rules
	expandRules      *match.Rules
	serializer       serialize.Options
	maxRuns          int64
	rejectWhenBusy   bool
	exclusive        bool
	grace            time.Duration
	batchesPerSecond float64
	batchBurst       int
	executor         engine.Executor
	locker           sync.Locker
}

// Option configures a Digger.
type Option func(*options)

func applyOptions(opts []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		rootName:         nodepath.DefaultRoot,
		rules:            match.DefaultRules(),
		serializer:       serialize.DefaultOptions(),
		grace:            DefaultGrace,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example:
//
//	d := graphdig.New(doc, nil, graphdig.WithLogger(graphdig.NewJSONLogger(slog.LevelDebug)))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &graphdig.BasicMetricsCollector{}
//	d := graphdig.New(doc, nil, graphdig.WithMetricsCollector(metrics))
//	// ... run searches ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, matches: %d\n", stats.SearchCount, stats.SearchMatches)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithRootName sets the name the root node carries in paths.
// Defaults to "root"; a page-global graph would use "window".
func WithRootName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.rootName = name
		}
	}
}

// WithRules installs the exclusion heuristic used by searches.
func WithRules(r match.Rules) Option {
	return func(o *options) {
		o.rules = r
	}
}

// WithExpandRules makes Expand hide properties the given rules veto.
// By default Expand lists every own property.
func WithExpandRules(r match.Rules) Option {
	return func(o *options) {
		o.expandRules = &r
	}
}

// WithSerializerOptions bounds previews and serialized values.
func WithSerializerOptions(so serialize.Options) Option {
	return func(o *options) {
		o.serializer = so
	}
}

// WithMaxConcurrentRuns limits how many searches may run at once.
// Further calls block until a slot frees or their context ends.
// If n <= 0, runs are not limited.
func WithMaxConcurrentRuns(n int64) Option {
	return func(o *options) {
		o.maxRuns = n
	}
}

// WithRejectWhenBusy makes Search and Explore fail with ErrTooManyRuns
// instead of blocking when WithMaxConcurrentRuns slots are all taken.
func WithRejectWhenBusy() Option {
	return func(o *options) {
		o.rejectWhenBusy = true
	}
}

// WithExclusiveRuns makes every new search cancel the active ones and wait
// up to grace for their terminal batches before it starts.
// A grace <= 0 selects DefaultGrace.
func WithExclusiveRuns(grace time.Duration) Option {
	return func(o *options) {
		if grace <= 0 {
			grace = DefaultGrace
		}
		o.exclusive = true
		o.grace = grace
	}
}

// WithBatchRate paces traversal batches across all runs.
// If perSecond <= 0, batches are not paced.
func WithBatchRate(perSecond float64, burst int) Option {
	return func(o *options) {
		o.batchesPerSecond = perSecond
		o.batchBurst = burst
	}
}

// WithExecutor sets how run continuations are scheduled.
// Defaults to one goroutine per batch.
func WithExecutor(e engine.Executor) Option {
	return func(o *options) {
		o.executor = e
	}
}

// WithLocker sets the host lock held around every traversal batch and every
// expansion. Hosts that mutate the graph take the same lock.
func WithLocker(l sync.Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}
