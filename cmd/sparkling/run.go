package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/engine"
)

// newRunCmd implements spec.md §6's default CLI behavior: parse,
// compile, and execute each given source file in order, with
// --dump-ast/--dump-bytecode short-circuiting execution per file.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file> [file...]",
		Short: "Run one or more Sparkling source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(args)
		},
	}
	cmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print the parsed AST instead of running")
	cmd.Flags().BoolVar(&dumpBytecode, "dump-bytecode", false, "print disassembled bytecode instead of running")
	return cmd
}

func runFiles(files []string) error {
	logger := newLogger()
	eng := engine.New(engine.WithLogger(logger), engine.WithTrace(traceExec))

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		source := string(data)

		if dumpAST {
			prog, err := engine.Parse(source)
			if err != nil {
				return err
			}
			dumpProgram(prog)
			continue
		}

		if dumpBytecode {
			proto, err := eng.Compile(source)
			if err != nil {
				return err
			}
			fmt.Print(bytecodeDisasm(proto))
			continue
		}

		if _, err := eng.Run(source); err != nil {
			return err
		}
	}
	return nil
}

// dumpProgram prints one line per top-level statement; it exists
// purely as a debugging aid and is not a correctness surface for any
// invariant (the full tree shape is visible from the bytecode it
// compiles to, which --dump-bytecode renders in full).
func dumpProgram(prog *ast.Program) {
	for _, stmt := range prog.Children {
		line, col := stmt.Pos()
		fmt.Printf("%d:%d %s\n", line, col, stmt.Type())
	}
}
