package vm

import (
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

// program is one compiled top-level unit together with the live objects
// its local symbol table resolves to. Nested function prototypes share
// their enclosing program's resolved table (spec.md §4.4's "the
// program's own symbol table").
type program struct {
	proto    *bytecode.FuncProto
	resolved []resolvedSym
	loaded   bool
}

type resolvedSym struct {
	kind bytecode.SymEntryKind
	str  *value.String
	cell *globalCell
	fn   *value.Function
}

// funcProto is the concrete payload the VM stores in every
// value.Function.Proto field: the bytecode prototype plus the program
// that owns its symbol table. value.Function keeps Proto untyped to
// avoid a value<->bytecode import cycle; the VM is the only consumer
// that ever unwraps it, so it is free to attach its own bookkeeping.
type funcProto struct {
	proto *bytecode.FuncProto
	prog  *program
}

// frame is one active invocation: its register window, instruction
// pointer, captured upvalues (if any), and the information needed to
// resume the caller when this frame returns.
type frame struct {
	proto    *bytecode.FuncProto
	regs     []value.Value
	ip       int
	prog     *program
	upvals   []value.Value
	rawArgs  []value.Value
	retReg   byte
	funcName string
}

// storeReg overwrites a register, releasing whatever object reference it
// previously held. It does not retain newValue: callers retain before
// calling storeReg whenever the value's source (symbol table, upvalue,
// global, sibling register) remains independently live.
func storeReg(fr *frame, idx byte, newValue value.Value) {
	old := fr.regs[idx]
	if old.IsObject() {
		value.Release(old)
	}
	fr.regs[idx] = newValue
}

// releaseFrame releases every register still holding an object
// reference, except the one named by keep (typically the register
// whose value is being handed to the caller). Every load into a
// register retains, so each register owns one reference: a value
// aliased into two registers (e.g. by MOV) was retained twice and is
// released once per register here. A register keeps its value until it
// is overwritten or the frame ends, even past the value's last use.
func releaseFrame(fr *frame, keep int) {
	for i, v := range fr.regs {
		if i == keep {
			continue
		}
		if v.IsObject() {
			value.Release(v)
		}
	}
}
