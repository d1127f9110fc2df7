package main

import (
	"github.com/dhamidi/bcdump/lsp"
	"github.com/spf13/cobra"
)

func newLSPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start a language server that reports decode errors as diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lsp.NewServer(version, flags.options())
			return server.RunStdio()
		},
	}
}
