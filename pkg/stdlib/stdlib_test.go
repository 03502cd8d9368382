package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkling-lang/sparkling/pkg/stdlib"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

func TestFuncsExposesExpectedNames(t *testing.T) {
	fns := stdlib.New().Funcs()
	for _, name := range []string{
		"print", "printf", "fmtstring", "getenv", "array", "hashmap",
		"len", "push", "keys", "values", "json_encode", "json_decode",
		"md5", "sha256", "regex_match", "http_get",
	} {
		_, ok := fns[name]
		assert.True(t, ok, "missing stdlib function %q", name)
	}
}

func TestLenOverArrayAndString(t *testing.T) {
	fns := stdlib.New().Funcs()

	arr, err := fns["array"](nil)
	require.NoError(t, err)
	_, err = fns["push"]([]value.Value{arr, value.Int(1)})
	require.NoError(t, err)
	_, err = fns["push"]([]value.Value{arr, value.Int(2)})
	require.NoError(t, err)

	n, err := fns["len"]([]value.Value{arr})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.AsInt())

	s := value.FromObject(value.KString, value.NewString("hello"))
	n, err = fns["len"]([]value.Value{s})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n.AsInt())
}

func TestJSONRoundTrip(t *testing.T) {
	fns := stdlib.New().Funcs()

	h, err := fns["hashmap"](nil)
	require.NoError(t, err)
	h.Object().(*value.HashMap).Set(
		value.FromObject(value.KString, value.NewString("x")),
		value.Int(7),
	)

	encoded, err := fns["json_encode"]([]value.Value{h})
	require.NoError(t, err)

	decoded, err := fns["json_decode"]([]value.Value{encoded})
	require.NoError(t, err)
	require.True(t, decoded.IsHashMap())

	got := decoded.Object().(*value.HashMap).Get(value.FromObject(value.KString, value.NewString("x")))
	require.True(t, got.IsInt())
	assert.Equal(t, int64(7), got.AsInt())
}

func TestHTTPGetAllowlistRejectsUnlistedURL(t *testing.T) {
	fns := stdlib.New(stdlib.WithHTTPAllowlist("https://example.com/allowed")).Funcs()

	_, err := fns["http_get"]([]value.Value{
		value.FromObject(value.KString, value.NewString("https://example.com/forbidden")),
	})
	require.Error(t, err)
}

func TestRegexMatch(t *testing.T) {
	fns := stdlib.New().Funcs()

	result, err := fns["regex_match"]([]value.Value{
		value.FromObject(value.KString, value.NewString("^foo")),
		value.FromObject(value.KString, value.NewString("foobar")),
	})
	require.NoError(t, err)
	assert.True(t, result.Bool())
}
