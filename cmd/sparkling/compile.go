package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/engine"
)

// newCompileCmd compiles a source file to a .spkb object file in the
// on-disk layout spec.md §6 describes (see pkg/bytecode/format.go),
// mirroring the teacher's compile subcommand for the new bytecode
// format.
func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <input> [output]",
		Short: "Compile a Sparkling source file to an object file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			return compileFile(input, output)
		},
	}
}

func compileFile(input, output string) error {
	if output == "" {
		ext := filepath.Ext(input)
		output = strings.TrimSuffix(input, ext) + ".spkb"
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	eng := engine.New(engine.WithLogger(newLogger()))
	proto, err := eng.Compile(string(data))
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer out.Close()

	if err := bytecode.Encode(out, proto); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("compiled %s -> %s\n", input, output)
	return nil
}
