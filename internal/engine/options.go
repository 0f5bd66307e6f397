package engine

import (
	"fmt"
	"time"
)

// BudgetPolicy decides what happens when a result or character ceiling is
// reached.
type BudgetPolicy uint8

const (
	// StopAtBudget ends the run with BudgetExhausted.
	StopAtBudget BudgetPolicy = iota

	// FlushAndContinue emits the pending matches as a non-final batch
	// flagged BudgetReset, starts a fresh budget window and keeps going.
	// The run then ends Completed or Cancelled like an unbounded one.
	FlushAndContinue
)

// String returns the flag name of the policy.
func (p BudgetPolicy) String() string {
	if p == FlushAndContinue {
		return "continue"
	}
	return "stop"
}

// ParseBudgetPolicy accepts "stop" and "continue". The empty string selects
// StopAtBudget.
func ParseBudgetPolicy(s string) (BudgetPolicy, error) {
	switch s {
	case "", "stop":
		return StopAtBudget, nil
	case "continue":
		return FlushAndContinue, nil
	default:
		return StopAtBudget, fmt.Errorf("unknown budget policy %q", s)
	}
}

// ExclusionMode decides which of the two exclusion effects applies to a
// node the match policy vetoes.
type ExclusionMode uint8

const (
	// ExcludeBoth neither reports the node as a match nor descends into it.
	ExcludeBoth ExclusionMode = iota

	// ExcludeTraversalOnly still reports matches, flagged Excluded, but
	// does not descend.
	ExcludeTraversalOnly

	// ExcludeMatchingOnly descends but reports no match for the node.
	ExcludeMatchingOnly
)

func (m ExclusionMode) skipsMatching() bool  { return m != ExcludeTraversalOnly }
func (m ExclusionMode) skipsTraversal() bool { return m != ExcludeMatchingOnly }

// Options bounds one run. Zero fields take their defaults.
type Options struct {
	// MaxDepth is the deepest level whose nodes are expanded. Matches are
	// reported one level further down.
	MaxDepth int

	// MaxResults and CharBudget cap one budget window. A match costs the
	// length of its path plus the length of its preview.
	MaxResults int
	CharBudget int

	// BatchSize is the number of frontier items dequeued per batch, and
	// BatchSlice the wall-clock bound of one batch.
	BatchSize  int
	BatchSlice time.Duration

	// FlushEvery emits a partial batch once this many matches are unsent.
	FlushEvery int

	// MaxFrontier triggers back-pressure: the frontier is cut to its
	// MaxFrontier/3 shallowest entries.
	MaxFrontier int

	Budget    BudgetPolicy
	Exclusion ExclusionMode
}

// DefaultOptions returns the bounds used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxDepth:    5,
		MaxResults:  10000,
		CharBudget:  100_000_000,
		BatchSize:   50,
		BatchSlice:  50 * time.Millisecond,
		FlushEvery:  25,
		MaxFrontier: 3000,
	}
}

// Validate rejects negative bounds and unknown enum values.
func (o Options) Validate() error {
	checks := []struct {
		name  string
		value int64
	}{
		{"MaxDepth", int64(o.MaxDepth)},
		{"MaxResults", int64(o.MaxResults)},
		{"CharBudget", int64(o.CharBudget)},
		{"BatchSize", int64(o.BatchSize)},
		{"BatchSlice", int64(o.BatchSlice)},
		{"FlushEvery", int64(o.FlushEvery)},
		{"MaxFrontier", int64(o.MaxFrontier)},
	}
	for _, c := range checks {
		if c.value < 0 {
			return &OptionError{Option: c.name, Value: c.value, Reason: "must not be negative"}
		}
	}
	if o.Budget > FlushAndContinue {
		return &OptionError{Option: "Budget", Value: o.Budget, Reason: "unknown policy"}
	}
	if o.Exclusion > ExcludeMatchingOnly {
		return &OptionError{Option: "Exclusion", Value: o.Exclusion, Reason: "unknown mode"}
	}
	return nil
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.MaxDepth == 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.MaxResults == 0 {
		o.MaxResults = def.MaxResults
	}
	if o.CharBudget == 0 {
		o.CharBudget = def.CharBudget
	}
	if o.BatchSize == 0 {
		o.BatchSize = def.BatchSize
	}
	if o.BatchSlice == 0 {
		o.BatchSlice = def.BatchSlice
	}
	if o.FlushEvery == 0 {
		o.FlushEvery = def.FlushEvery
	}
	if o.MaxFrontier == 0 {
		o.MaxFrontier = def.MaxFrontier
	}
	return o
}
