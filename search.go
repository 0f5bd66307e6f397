package graphdig

import (
	"context"
	"errors"
	"iter"

	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
)

// ErrNoMatch is returned by SearchBuilder.First when the run found nothing.
var ErrNoMatch = errors.New("no match")

// Query creates a fluent search builder for term.
//
// Example:
//
//	rs, err := d.Query("token").
//	    Keys().
//	    MaxDepth(3).
//	    Execute(ctx)
//
//	// Or with streaming:
//	for m, err := range d.Query("token").Stream(ctx) {
//	    if err != nil { break }
//	    fmt.Println(m.Path)
//	}
func (d *Digger) Query(term string) *SearchBuilder {
	return &SearchBuilder{
		d:    d,
		term: term,
		opts: DefaultSearchOptions(),
	}
}

// SearchBuilder is a fluent builder for one search or explore run.
type SearchBuilder struct {
	d    *Digger
	term string
	path string
	opts SearchOptions
}

// Keys matches on property names only.
func (sb *SearchBuilder) Keys() *SearchBuilder {
	sb.opts.Mode = match.ModeKeys
	return sb
}

// Values matches on value previews only.
func (sb *SearchBuilder) Values() *SearchBuilder {
	sb.opts.Mode = match.ModeValues
	return sb
}

// Exact requires the whole key or preview to equal the term.
func (sb *SearchBuilder) Exact() *SearchBuilder {
	sb.opts.Match = match.Full
	return sb
}

// MaxDepth sets the deepest level that is expanded.
func (sb *SearchBuilder) MaxDepth(n int) *SearchBuilder {
	sb.opts.MaxDepth = n
	return sb
}

// MaxResults caps the number of matches in one budget window.
func (sb *SearchBuilder) MaxResults(n int) *SearchBuilder {
	sb.opts.MaxResults = n
	return sb
}

// CharBudget caps the characters of paths and previews in one budget window.
func (sb *SearchBuilder) CharBudget(n int) *SearchBuilder {
	sb.opts.CharBudget = n
	return sb
}

// Continue keeps searching past the budget, one window at a time.
func (sb *SearchBuilder) Continue() *SearchBuilder {
	sb.opts.Budget = FlushAndContinue
	return sb
}

// Under roots the run at path instead of the graph root.
func (sb *SearchBuilder) Under(path string) *SearchBuilder {
	sb.path = path
	if sb.opts.MaxDepth == DefaultSearchOptions().MaxDepth {
		sb.opts.MaxDepth = DefaultExploreOptions().MaxDepth
	}
	return sb
}

// Options replaces every setting made so far.
func (sb *SearchBuilder) Options(so SearchOptions) *SearchBuilder {
	sb.opts = so
	return sb
}

// Start launches the run and returns its stream.
func (sb *SearchBuilder) Start(ctx context.Context) (*Stream, error) {
	if sb.path != "" {
		return sb.d.Explore(ctx, sb.path, sb.term, sb.opts)
	}
	return sb.d.Search(ctx, sb.term, sb.opts)
}

// Execute runs the search to completion and returns every match.
func (sb *SearchBuilder) Execute(ctx context.Context) (*model.ResultSet, error) {
	s, err := sb.Start(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := s.Collect(ctx)
	if err != nil {
		s.Cancel()
		return nil, err
	}
	return rs, nil
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder) MustExecute(ctx context.Context) *model.ResultSet {
	rs, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return rs
}

// Stream returns an iterator over matches in emission order.
// Breaking out of the loop cancels the run.
func (sb *SearchBuilder) Stream(ctx context.Context) iter.Seq2[model.MatchRecord, error] {
	return func(yield func(model.MatchRecord, error) bool) {
		s, err := sb.Start(ctx)
		if err != nil {
			yield(model.MatchRecord{}, err)
			return
		}

		rs := &model.ResultSet{}
		for b, err := range s.All(ctx) {
			if err != nil {
				s.Cancel()
				yield(model.MatchRecord{}, err)
				return
			}
			before := rs.Len()
			rs.Apply(b)
			// A cancellation replay restates matches already yielded.
			for _, m := range rs.Matches()[before:] {
				if !yield(m, nil) {
					s.Cancel()
					return
				}
			}
		}
	}
}

// First returns the first match, or ErrNoMatch if there is none.
func (sb *SearchBuilder) First(ctx context.Context) (model.MatchRecord, error) {
	for m, err := range sb.Stream(ctx) {
		if err != nil {
			return model.MatchRecord{}, err
		}
		return m, nil
	}
	return model.MatchRecord{}, ErrNoMatch
}

// Count runs the search to completion and returns the number of matches.
func (sb *SearchBuilder) Count(ctx context.Context) (int, error) {
	rs, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return rs.Len(), nil
}

// Exists reports whether the search finds at least one match.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	_, err := sb.First(ctx)
	if errors.Is(err, ErrNoMatch) {
		return false, nil
	}
	return err == nil, err
}
