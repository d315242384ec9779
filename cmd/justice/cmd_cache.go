package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/justice/store"
)

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the verdict cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(opts.config.CachePath())
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tpass %s\t%s\t%s\n", e.Class, e.Pass, e.Digest[:12], e.Created.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(opts.config.CachePath())
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d report(s) from %s\n", n, s.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the location of the verdict cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), opts.config.CachePath())
			return nil
		},
	})

	return cmd
}
