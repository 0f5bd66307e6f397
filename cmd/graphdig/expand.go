package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/graphdig"
)

func newExpandCmd(root *rootOpts) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "expand FILE PATH",
		Short:   "list the own properties of one node",
		Args:    cobra.ExactArgs(2),
		Example: `graphdig expand state.json root.users --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := root.digger(args[0])
			if err != nil {
				return err
			}
			defer d.Close()

			res, err := d.Expand(cmd.Context(), args[1], limit)
			if err != nil {
				return err
			}
			if res.NotFound {
				cmd.PrintErrf("%s: %s\n", args[1], graphdig.ErrTextNotExpandable)
				return nil
			}

			write, err := root.writer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			for _, p := range res.Properties {
				if err := write(p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum number of properties")
	return cmd
}
