// Package stdlib implements Sparkling's standard library: the set of
// native functions a host binds into a VM's global table via
// AddCFuncs, grounded in the teacher's pkg/vm/primitives.go (HTTP,
// crypto, JSON, regex primitives) scaled down to what an embeddable
// scripting core realistically exposes.
package stdlib

import (
	"fmt"

	"github.com/sparkling-lang/sparkling/pkg/format"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

// scriptArgs adapts a script call's []value.Value argument list to
// format.ArgSource, the other half of spec.md §4.5's "parameterize
// over argument source" contract (format.GoArgs, which
// pkg/compiler/errors.go uses, is the Go-variadic half).
type scriptArgs []value.Value

func (a scriptArgs) Len() int { return len(a) }

func (a scriptArgs) Kind(i int) format.Kind {
	switch {
	case a[i].IsString():
		return format.KindString
	case a[i].IsBool():
		return format.KindBool
	case a[i].IsInt():
		return format.KindInt
	case a[i].IsFloat():
		return format.KindFloat
	default:
		return format.KindString
	}
}

func (a scriptArgs) String(i int) string {
	v := a[i]
	switch {
	case v.IsString():
		return v.Object().(*value.String).String()
	case v.IsInt():
		return fmt.Sprintf("%d", v.AsInt())
	case v.IsFloat():
		return fmt.Sprintf("%g", v.AsFloat())
	case v.IsBool():
		if v.Bool() {
			return "true"
		}
		return "false"
	case v.IsNil():
		return "nil"
	default:
		return fmt.Sprintf("<%s>", value.TypeName(v))
	}
}

func (a scriptArgs) Int(i int) int64     { return a[i].AsInt() }
func (a scriptArgs) Uint(i int) uint64   { return uint64(a[i].AsInt()) }
func (a scriptArgs) Float(i int) float64 { return a[i].AsFloat() }
func (a scriptArgs) Bool(i int) bool     { return a[i].Bool() }

func argString(argv []value.Value, i int) (string, error) {
	if i >= len(argv) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	if !argv[i].IsString() {
		return "", fmt.Errorf("argument %d must be a string, got %s", i, value.TypeName(argv[i]))
	}
	return argv[i].Object().(*value.String).String(), nil
}

func stringResult(s string) value.Value {
	return value.FromObject(value.KString, value.NewString(s))
}
