package vm

import (
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

// loadProgram performs spec.md §4.4's "load-time symbol resolution":
// walking a top-level program's serialized symbol table once, turning
// each entry into a live object or global-table cell. Re-execution of
// an already-loaded program skips this phase (the "symtab-read" flag,
// here prog.loaded).
func (vm *VM) loadProgram(prog *program) {
	if prog.loaded {
		return
	}
	prog.resolved = make([]resolvedSym, len(prog.proto.SymTab))
	for i, sym := range prog.proto.SymTab {
		switch sym.Kind {
		case bytecode.SymStrConst:
			prog.resolved[i] = resolvedSym{kind: bytecode.SymStrConst, str: value.NewString(sym.Str)}
		case bytecode.SymStub:
			prog.resolved[i] = resolvedSym{kind: bytecode.SymStub, cell: vm.cellFor(sym.Name)}
		case bytecode.SymFuncDef:
			fn := value.NewScriptFunction(sym.Name, &funcProto{proto: sym.Proto, prog: prog})
			prog.resolved[i] = resolvedSym{kind: bytecode.SymFuncDef, fn: fn}
		}
	}
	prog.loaded = true
}
