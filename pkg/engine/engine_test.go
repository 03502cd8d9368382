package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkling-lang/sparkling/pkg/compiler"
	"github.com/sparkling-lang/sparkling/pkg/engine"
	"github.com/sparkling-lang/sparkling/pkg/parser"
	"github.com/sparkling-lang/sparkling/pkg/stdlib"
	"github.com/sparkling-lang/sparkling/pkg/value"
	"github.com/sparkling-lang/sparkling/pkg/vm"
)

func run(t *testing.T, source string) value.Value {
	t.Helper()
	eng := engine.New()
	result, err := eng.Run(source)
	require.NoError(t, err)
	return result
}

func TestArithmeticPrecedence(t *testing.T) {
	result := run(t, "return 1 + 2 * 3;")
	require.True(t, result.IsInt())
	assert.Equal(t, int64(7), result.AsInt())
}

func TestStringConcatReassignment(t *testing.T) {
	result := run(t, `var s = "foo"; s = s .. "bar"; return s;`)
	require.True(t, result.IsString())
	assert.Equal(t, "foobar", result.Object().(*value.String).String())
}

func TestClosureCapturesEnclosingLocal(t *testing.T) {
	result := run(t, `
		function make(x) { return function() { return x; }; }
		var f = make(42);
		return f();
	`)
	require.True(t, result.IsInt())
	assert.Equal(t, int64(42), result.AsInt())
}

func TestArrayIndexAndSizeof(t *testing.T) {
	result := run(t, `
		var a = array();
		a[0] = 10;
		a[1] = 20;
		return sizeof a + a[0] + a[1];
	`)
	require.True(t, result.IsInt())
	assert.Equal(t, int64(32), result.AsInt())
}

func TestIfElseBranch(t *testing.T) {
	result := run(t, `if 0 == 0 { return "y"; } else { return "n"; }`)
	require.True(t, result.IsString())
	assert.Equal(t, "y", result.Object().(*value.String).String())
}

func TestForwardReferenceViaSymbolStubs(t *testing.T) {
	result := run(t, `
		function f() { return g() + 1; }
		function g() { return 10; }
		return f();
	`)
	require.True(t, result.IsInt())
	assert.Equal(t, int64(11), result.AsInt())
}

func TestAliasedArrayAssignmentSharesLiveObject(t *testing.T) {
	prog, err := parser.New(`
		var a = array();
		a[0] = 1;
		var b = a;
		a = nil;
		return b[0];
	`).Parse()
	require.NoError(t, err)
	proto, err := compiler.New().CompileProgram(prog)
	require.NoError(t, err)
	machine := vm.New()
	require.NoError(t, machine.AddCFuncs(stdlib.New().Funcs()))

	// The bound native functions live as long as the VM; the count is
	// taken after binding so only the program's own objects are measured.
	before := value.LiveObjectCount()
	result, err := machine.Execute(proto)
	require.NoError(t, err)
	require.True(t, result.IsInt())
	assert.Equal(t, int64(1), result.AsInt())

	assert.Equal(t, before, value.LiveObjectCount())
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	eng := engine.New()
	_, err := eng.Run(`var x = 1; var y = 0; return x / y;`)
	require.Error(t, err)
}

func TestConcatRequiresStringOperands(t *testing.T) {
	eng := engine.New()
	_, err := eng.Run(`return 1 .. "x";`)
	require.Error(t, err)
}

func TestParseErrorSurfacesFromEngine(t *testing.T) {
	eng := engine.New()
	_, err := eng.Run(`var = ;`)
	require.Error(t, err)
}
