package value

// functionClass is shared across every Function. Equality differs by
// variant: native functions compare by Go function identity (boxed in
// the NativeFn field), script functions and closures compare by
// identity of their prototype plus captured upvalues.
var functionClass = &Class{
	Name: "function",
	Equal: func(a, b Object) bool {
		fa, fb := a.(*Function), b.(*Function)
		if fa.Variant != fb.Variant {
			return false
		}
		switch fa.Variant {
		case FnNative:
			return fa.NativeID == fb.NativeID
		default:
			return fa.Proto == fb.Proto && sameUpvalues(fa.Upvalues, fb.Upvalues)
		}
	},
	Destroy: func(o Object) {
		f := o.(*Function)
		for _, uv := range f.Upvalues {
			Release(uv)
		}
		f.Upvalues = nil
	},
}

func sameUpvalues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Variant distinguishes the four callable shapes the spec names.
type Variant int

const (
	// FnNative wraps a host (Go) function exposed to scripts.
	FnNative Variant = iota
	// FnScript is a plain, non-closing script function: Proto is its
	// bytecode prototype and Upvalues is always empty.
	FnScript
	// FnTopLevel is the implicit top-level function a compiled program
	// starts executing in; distinguished from FnScript for stack traces
	// only.
	FnTopLevel
	// FnClosure pairs a script prototype with captured upvalues.
	FnClosure
)

// NativeFn is the signature every host-exposed function implements.
// argv is a borrowed slice (native code must Retain anything it
// stores past the call). A non-nil error becomes a runtime error in
// the calling frame.
type NativeFn func(argv []Value) (Value, error)

// Function is the single Object implementation behind every callable
// value. Proto is opaque here (pkg/bytecode's *bytecode.FuncProto) to
// avoid value<->bytecode import cycles; the VM is the only consumer
// that type-asserts it.
type Function struct {
	RC
	Variant  Variant
	Name     string // optional; empty for anonymous function literals
	Native   NativeFn
	NativeID uintptr // identity key for Equal/Hash on native functions
	Proto    interface{}
	Upvalues []Value
}

func init() {
	functionClass.Hash = func(o Object) uint64 {
		f := o.(*Function)
		if f.Variant == FnNative {
			return uint64(f.NativeID)
		}
		return hashPointer(f.Proto)
	}
}

// NewNativeFunction wraps fn as a script-callable value. id must be a
// stable per-function identity (e.g. reflect.ValueOf(fn).Pointer()) so
// repeated wrapping of the same Go function compares equal.
func NewNativeFunction(name string, id uintptr, fn NativeFn) *Function {
	return &Function{RC: InitRC(functionClass), Variant: FnNative, Name: name, Native: fn, NativeID: id}
}

// NewScriptFunction wraps a bytecode prototype with no captured
// upvalues.
func NewScriptFunction(name string, proto interface{}) *Function {
	return &Function{RC: InitRC(functionClass), Variant: FnScript, Name: name, Proto: proto}
}

// NewTopLevelFunction wraps the program entry-point prototype.
func NewTopLevelFunction(proto interface{}) *Function {
	return &Function{RC: InitRC(functionClass), Variant: FnTopLevel, Proto: proto}
}

// NewClosure wraps a prototype together with its captured upvalues,
// taking ownership of one reference per object-kind element of
// upvalues.
func NewClosure(name string, proto interface{}, upvalues []Value) *Function {
	return &Function{RC: InitRC(functionClass), Variant: FnClosure, Name: name, Proto: proto, Upvalues: upvalues}
}

func (f *Function) Release() { f.RC.Release(f) }

// IsCallable is always true; it exists so callers can avoid a type
// switch when all they need is a boolean.
func (f *Function) IsCallable() bool { return true }
