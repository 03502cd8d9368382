package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/sparkling-lang/sparkling/pkg/engine"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Sparkling session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}
}

// runREPL evaluates one line at a time against a fresh VM each time,
// since a VM's top-level program can only be executed once (GLBVAL's
// write-once rule). This trades cross-line variable persistence for
// simplicity; a later iteration could keep one VM and compile each
// line as its own nested function to restore it.
func runREPL() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sparkling> ",
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("sparkling %s -- type :quit to exit\n", version)
	eng := engine.New(engine.WithLogger(newLogger()), engine.WithTrace(traceExec))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch line {
		case "":
			continue
		case ":quit", ":exit":
			return nil
		}

		result, err := eng.Run(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if !result.IsNil() {
			fmt.Println(formatResult(result))
		}
	}
}

func formatResult(v value.Value) string {
	switch {
	case v.IsString():
		return v.Object().(*value.String).String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sparkling_history"
	}
	return home + "/.sparkling_history"
}
