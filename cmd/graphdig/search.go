package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/graphdig"
	"github.com/hupe1980/graphdig/match"
)

type searchOpts struct {
	term       string
	mode       string
	matchType  string
	maxDepth   int
	maxResults int
	charBudget int
	budget     string
}

func (s *searchOpts) bind(cmd *cobra.Command, def graphdig.SearchOptions) {
	f := cmd.Flags()
	f.StringVar(&s.term, "term", "", "search term (empty matches everything)")
	f.StringVar(&s.mode, "mode", "both", "match on: both, keys or values")
	f.StringVar(&s.matchType, "match", "partial", "match type: partial or full")
	f.IntVar(&s.maxDepth, "max-depth", def.MaxDepth, "deepest level to expand")
	f.IntVar(&s.maxResults, "max-results", def.MaxResults, "matches per budget window")
	f.IntVar(&s.charBudget, "char-budget", def.CharBudget, "characters of paths and previews per budget window")
	f.StringVar(&s.budget, "budget", "stop", "when the budget is spent: stop or continue")
}

func (s *searchOpts) options(def graphdig.SearchOptions) (graphdig.SearchOptions, error) {
	so := def
	var err error
	if so.Mode, err = match.ParseMode(s.mode); err != nil {
		return so, err
	}
	if so.Match, err = match.ParseType(s.matchType); err != nil {
		return so, err
	}
	if so.Budget, err = graphdig.ParseBudgetPolicy(s.budget); err != nil {
		return so, err
	}
	so.MaxDepth = s.maxDepth
	so.MaxResults = s.maxResults
	so.CharBudget = s.charBudget
	return so, nil
}

func newSearchCmd(root *rootOpts) *cobra.Command {
	opts := &searchOpts{}
	cmd := &cobra.Command{
		Use:     "search FILE",
		Short:   "search a whole document",
		Args:    cobra.ExactArgs(1),
		Example: `graphdig search config.yaml --term token --mode keys`,
		RunE: func(cmd *cobra.Command, args []string) error {
			so, err := opts.options(graphdig.DefaultSearchOptions())
			if err != nil {
				return err
			}
			d, err := root.digger(args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			s, err := d.Search(cmd.Context(), opts.term, so)
			if err != nil {
				return err
			}
			return drain(cmd, root, s)
		},
	}
	opts.bind(cmd, graphdig.DefaultSearchOptions())
	return cmd
}

func newExploreCmd(root *rootOpts) *cobra.Command {
	opts := &searchOpts{}
	cmd := &cobra.Command{
		Use:     "explore FILE PATH",
		Short:   "search below one node of a document",
		Args:    cobra.ExactArgs(2),
		Example: `graphdig explore state.json 'root.users[0]' --term mail`,
		RunE: func(cmd *cobra.Command, args []string) error {
			so, err := opts.options(graphdig.DefaultExploreOptions())
			if err != nil {
				return err
			}
			d, err := root.digger(args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			s, err := d.Explore(cmd.Context(), args[1], opts.term, so)
			if err != nil {
				return err
			}
			if s.NotFound() {
				cmd.PrintErrf("%s: %s\n", args[1], graphdig.ErrTextObjectNotFound)
			}
			return drain(cmd, root, s)
		},
	}
	opts.bind(cmd, graphdig.DefaultExploreOptions())
	return cmd
}

// drain writes every batch of s, one record per batch.
func drain(cmd *cobra.Command, root *rootOpts, s *graphdig.Stream) error {
	write, err := root.writer(cmd.OutOrStdout())
	if err != nil {
		s.Cancel()
		return err
	}
	for b, err := range s.All(cmd.Context()) {
		if err != nil {
			return err
		}
		if err := write(b); err != nil {
			s.Cancel()
			return err
		}
	}
	return nil
}
