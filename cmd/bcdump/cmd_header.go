package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/bcdump/dump"
	"github.com/dhamidi/bcdump/format"
	"github.com/spf13/cobra"
)

func newHeaderCmd(flags *globalFlags) *cobra.Command {
	var headerFormat string
	var raw bool

	cmd := &cobra.Command{
		Use:   "header <file>",
		Short: "Print the decoded header of a class or dex file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			h, err := dump.Header(buf, flags.options())
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if raw {
				headerFormat = "raw"
			}
			enc, err := format.NewEncoder(headerFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := enc.Encode(h); err != nil {
				return fmt.Errorf("encode %s: %w", headerFormat, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&headerFormat, "format", "f", "json", "output format (json, raw)")
	cmd.Flags().BoolVar(&raw, "raw", false, "shorthand for --format raw")

	return cmd
}
