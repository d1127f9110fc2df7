package main

import (
	"os"

	"github.com/dhamidi/bcdump/dump"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	indent      int
	skipUnknown bool
	verbose     int
	logFile     string
}

func (g *globalFlags) options() dump.Options {
	return dump.Options{
		IndentWidth:           g.indent,
		SkipUnknownAttributes: g.skipUnknown,
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "bcdump",
		Short:        "Dump the structure of JVM class files and Android dex files",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var path *string
			if flags.logFile != "" {
				path = &flags.logFile
			}
			commonlog.Configure(flags.verbose, path)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flags.indent, "indent", 2, "spaces per indentation level")
	pf.BoolVar(&flags.skipUnknown, "skip-unknown-attributes", false, "skip class file attributes with unrecognized names")
	pf.CountVarP(&flags.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newClassCmd(flags))
	rootCmd.AddCommand(newDexCmd(flags))
	rootCmd.AddCommand(newDumpCmd(flags))
	rootCmd.AddCommand(newHeaderCmd(flags))
	rootCmd.AddCommand(newLSPCmd(flags))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
