package vm

import "github.com/sparkling-lang/sparkling/pkg/value"

// globalCell is the mutable slot behind one global name. Load-time
// resolution of a SYMSTUB entry (spec.md §4.4) creates the cell (if it
// does not exist yet) without requiring the value to be defined; GLBVAL
// fills it in later, and LDSYM reads whatever is there at execution
// time — this is what lets a forward reference between two top-level
// functions (spec.md §8 scenario 6) resolve correctly: both functions'
// SYMSTUB entries for each other's name share the same cell, created
// once at load time and populated once each function's GLBVAL runs.
type globalCell struct {
	value   value.Value
	defined bool
}

// cellFor returns the named global's cell, creating an undefined one if
// this is the first reference to the name.
func (vm *VM) cellFor(name string) *globalCell {
	if c, ok := vm.globals[name]; ok {
		return c
	}
	c := &globalCell{}
	vm.globals[name] = c
	return c
}

// defineGlobal implements GLBVAL's write-once rule: installing over an
// already-defined global is a runtime error.
func (vm *VM) defineGlobal(fr *frame, name string, v value.Value) error {
	cell := vm.cellFor(name)
	if cell.defined {
		return vm.runtimeErrorAt(fr, "global %q is already defined", name)
	}
	value.Retain(v)
	cell.value = v
	cell.defined = true
	return nil
}

// AddCFuncs binds a set of native functions into the global table
// before (or after) a program is loaded, per spec.md §4.4's host
// integration contract. It is an error to rebind an already-defined
// name, mirroring GLBVAL's write-once discipline for consistency.
func (vm *VM) AddCFuncs(fns map[string]value.NativeFn) error {
	for name, fn := range fns {
		cell := vm.cellFor(name)
		if cell.defined {
			return newRuntimeError(0, nil, "host tried to redefine global %q", name)
		}
		fv := value.NewNativeFunction(name, nativeID(fn), fn)
		cell.value = value.FromObject(value.KFunction, fv)
		cell.defined = true
	}
	return nil
}

// AddValues binds a set of constant values into the global table,
// analogous to AddCFuncs but for non-callable host bindings.
func (vm *VM) AddValues(vals map[string]value.Value) error {
	for name, v := range vals {
		cell := vm.cellFor(name)
		if cell.defined {
			return newRuntimeError(0, nil, "host tried to redefine global %q", name)
		}
		value.Retain(v)
		cell.value = v
		cell.defined = true
	}
	return nil
}
