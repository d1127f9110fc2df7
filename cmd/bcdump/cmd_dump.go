package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/bcdump/dump"
	"github.com/spf13/cobra"
)

func newClassCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "class <file>",
		Short: "Dump a .class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decodeFile(cmd.OutOrStdout(), args[0], func(buf []byte, w io.Writer) error {
				return dump.Class(buf, w, flags.options())
			})
		},
	}
}

func newDexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dex <file>",
		Short: "Dump a .dex file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decodeFile(cmd.OutOrStdout(), args[0], func(buf []byte, w io.Writer) error {
				return dump.Dex(buf, w, flags.options())
			})
		},
	}
}

func newDumpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>...",
		Short: "Dump class and dex files, detecting the format of each",
		Long: `Dump one or more files, choosing the decoder from each file's magic bytes.

A file that fails to decode does not stop the others. The command exits
non-zero if any file failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := bufio.NewWriter(cmd.OutOrStdout())
			err := dump.Files(args, w, flags.options())
			if ferr := w.Flush(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	}
}

// decodeFile reads path and runs decode on it with buffered output. The
// partial dump is still flushed when decode fails.
func decodeFile(out io.Writer, path string, decode func([]byte, io.Writer) error) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	w := bufio.NewWriter(out)
	err = decode(buf, w)
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
