package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/engine"
)

// newDisasmCmd disassembles a compiled object file. Given a source file
// instead, it compiles first so a single .spk file can be inspected
// without a separate compile step.
func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file>",
		Short: "Disassemble a compiled object file or source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disasmFile(args[0])
		},
	}
}

func disasmFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	proto, err := bytecode.Decode(f)
	if err == nil {
		fmt.Print(bytecodeDisasm(proto))
		return nil
	}

	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return fmt.Errorf("reading %s: %w", path, rerr)
	}
	eng := engine.New(engine.WithLogger(newLogger()))
	proto, cerr := eng.Compile(string(data))
	if cerr != nil {
		return fmt.Errorf("%s is neither a valid object file (%v) nor valid source (%v)", path, err, cerr)
	}
	fmt.Print(bytecodeDisasm(proto))
	return nil
}
