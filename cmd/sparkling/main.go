// Command sparkling is the Sparkling language's reference CLI: it
// parses, compiles, and executes source files, can dump intermediate
// forms for debugging, and offers an interactive REPL.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	dumpAST      bool
	dumpBytecode bool
	traceExec    bool
)

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func main() {
	root := &cobra.Command{
		Use:           "sparkling",
		Short:         "The Sparkling scripting language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&traceExec, "trace", false, "emit structured CALL/RET trace events")

	root.AddCommand(newRunCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sparkling version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("sparkling version %s\n", version)
			return nil
		},
	}
}
