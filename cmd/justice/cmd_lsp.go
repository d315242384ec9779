package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/justice/lsp"
)

func newLSPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lsp.NewLSPServer(version)
			return server.RunStdio()
		},
	}
}
