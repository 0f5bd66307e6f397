package graphdig

import (
	"github.com/hupe1980/graphdig/internal/engine"
	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
)

// BudgetPolicy decides what a run does when its result or character budget
// is spent.
type BudgetPolicy = engine.BudgetPolicy

const (
	// StopAtBudget ends the run with BudgetExhausted.
	StopAtBudget = engine.StopAtBudget
	// FlushAndContinue flushes the window, resets the budget and keeps going.
	FlushAndContinue = engine.FlushAndContinue
)

// ParseBudgetPolicy accepts "stop" and "continue".
func ParseBudgetPolicy(s string) (BudgetPolicy, error) { return engine.ParseBudgetPolicy(s) }

// ExclusionMode decides how a node vetoed by the rules is treated.
type ExclusionMode = engine.ExclusionMode

const (
	ExcludeBoth          = engine.ExcludeBoth
	ExcludeTraversalOnly = engine.ExcludeTraversalOnly
	ExcludeMatchingOnly  = engine.ExcludeMatchingOnly
)

// Executor schedules run continuations.
type Executor = engine.Executor

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc = engine.ExecutorFunc

// SearchOptions configures one search or explore run. Zero fields take the
// defaults of DefaultSearchOptions.
type SearchOptions struct {
	Mode  match.Mode
	Match match.Type

	MaxDepth   int
	MaxResults int
	CharBudget int

	// FlushEvery emits a partial batch once this many matches are unsent.
	FlushEvery int

	// MaxFrontier bounds the pending queue before back-pressure kicks in.
	MaxFrontier int

	Budget    BudgetPolicy
	Exclusion ExclusionMode

	// OnStatus, when set, receives progress after every non-final batch.
	OnStatus func(model.Status)
}

// DefaultSearchOptions returns the bounds of a top-level search.
func DefaultSearchOptions() SearchOptions {
	d := engine.DefaultOptions()
	return SearchOptions{
		MaxDepth:    d.MaxDepth,
		MaxResults:  d.MaxResults,
		CharBudget:  d.CharBudget,
		FlushEvery:  d.FlushEvery,
		MaxFrontier: d.MaxFrontier,
	}
}

// DefaultExploreOptions returns the tighter bounds used when searching
// below a node the user opened.
func DefaultExploreOptions() SearchOptions {
	o := DefaultSearchOptions()
	o.MaxDepth = 3
	o.MaxResults = 50
	return o
}

func (so SearchOptions) engineOptions() engine.Options {
	return engine.Options{
		MaxDepth:    so.MaxDepth,
		MaxResults:  so.MaxResults,
		CharBudget:  so.CharBudget,
		FlushEvery:  so.FlushEvery,
		MaxFrontier: so.MaxFrontier,
		Budget:      so.Budget,
		Exclusion:   so.Exclusion,
	}
}
