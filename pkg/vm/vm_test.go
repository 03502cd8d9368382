package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkling-lang/sparkling/pkg/compiler"
	"github.com/sparkling-lang/sparkling/pkg/parser"
	"github.com/sparkling-lang/sparkling/pkg/value"
	"github.com/sparkling-lang/sparkling/pkg/vm"
)

func TestExecuteSimpleArithmetic(t *testing.T) {
	p := parser.New("return 2 * (3 + 4);")
	prog, err := p.Parse()
	require.NoError(t, err)
	proto, err := compiler.New().CompileProgram(prog)
	require.NoError(t, err)

	machine := vm.New()
	result, err := machine.Execute(proto)
	require.NoError(t, err)
	require.True(t, result.IsInt())
	assert.Equal(t, int64(14), result.AsInt())
}

func TestHostBoundNativeFunctionIsCallable(t *testing.T) {
	p := parser.New("return double(21);")
	prog, err := p.Parse()
	require.NoError(t, err)
	proto, err := compiler.New().CompileProgram(prog)
	require.NoError(t, err)

	machine := vm.New()
	err = machine.AddCFuncs(map[string]value.NativeFn{
		"double": func(argv []value.Value) (value.Value, error) {
			return value.Int(argv[0].AsInt() * 2), nil
		},
	})
	require.NoError(t, err)

	result, err := machine.Execute(proto)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())
}

func TestProgramCannotRedefineHostBoundGlobal(t *testing.T) {
	p := parser.New("function answer() { return 42; } return answer();")
	prog, err := p.Parse()
	require.NoError(t, err)
	proto, err := compiler.New().CompileProgram(prog)
	require.NoError(t, err)

	machine := vm.New()
	require.NoError(t, machine.AddValues(map[string]value.Value{"answer": value.Int(1)}))

	_, err = machine.Execute(proto)
	require.Error(t, err)
}
