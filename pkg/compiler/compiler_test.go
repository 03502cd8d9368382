package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkling-lang/sparkling/pkg/compiler"
	"github.com/sparkling-lang/sparkling/pkg/parser"
)

func TestArgcNeverExceedsNregs(t *testing.T) {
	p := parser.New(`
		function add(a, b, c) { return a + b + c; }
		return add(1, 2, 3);
	`)
	prog, err := p.Parse()
	require.NoError(t, err)

	proto, err := compiler.New().CompileProgram(prog)
	require.NoError(t, err)
	assert.LessOrEqual(t, proto.Argc, proto.Nregs)
	assert.LessOrEqual(t, proto.Nregs, 256)

	require.Len(t, proto.SymTab, 1)
}

func TestDuplicateParameterIsSemanticError(t *testing.T) {
	p := parser.New(`function f(a, a) { return a; } return f(1);`)
	prog, err := p.Parse()
	require.NoError(t, err)

	_, err = compiler.New().CompileProgram(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semantic error near line")
}

func TestIllegalBreakOutsideLoopIsSemanticError(t *testing.T) {
	p := parser.New(`break;`)
	prog, err := p.Parse()
	require.NoError(t, err)

	_, err = compiler.New().CompileProgram(prog)
	require.Error(t, err)
}
