package compiler

import "github.com/sparkling-lang/sparkling/pkg/bytecode"

// varEntry binds a name to the register holding it, for the lifetime
// of the scope that declared it.
type varEntry struct {
	name string
	reg  byte
}

// loopCtx tracks the jump-patch sites of one enclosing loop: break
// statements jump past the loop, continue statements jump to its
// condition/increment re-check.
type loopCtx struct {
	breakSites    []int
	continueSites []int
}

// funcState is the compiler's per-function scope: the live variable
// stack (also the bottom of the register-allocation stack), the
// temporary-register stack pointer, the upvalue list being built for
// this function (if it turns out to need one), and the loop stack
// guarding break/continue.
type funcState struct {
	parent *funcState
	proto  *bytecode.FuncProto

	vars    []varEntry
	nextReg byte
	maxReg  byte

	upvals     []bytecode.UpvalDesc
	upvalNames []string

	loops []*loopCtx
}

func newFuncState(parent *funcState, name string) *funcState {
	return &funcState{
		parent: parent,
		proto:  &bytecode.FuncProto{Name: name},
	}
}

// push allocates the next free register as a temporary, enforcing the
// MAX_REG_FRAME invariant. nextReg and maxReg are bytes, so a frame
// holds at most MaxRegFrame-1 registers.
func (fs *funcState) push() (byte, error) {
	if int(fs.nextReg) >= bytecode.MaxRegFrame-1 {
		return 0, newError(0, 0, "function uses more than %d registers", bytecode.MaxRegFrame-1)
	}
	r := fs.nextReg
	fs.nextReg++
	if fs.nextReg > fs.maxReg {
		fs.maxReg = fs.nextReg
	}
	return r, nil
}

// pop releases the most recently pushed temporary.
func (fs *funcState) pop() {
	fs.nextReg--
}

// declareLocal reserves a permanent register for a new variable in the
// current block. Callers must check for redeclaration in the current
// block first.
func (fs *funcState) declareLocal(name string) (byte, error) {
	reg, err := fs.push()
	if err != nil {
		return 0, err
	}
	fs.vars = append(fs.vars, varEntry{name: name, reg: reg})
	return reg, nil
}

// findLocal looks up name in the current function's variable stack,
// innermost (most recently declared) first.
func (fs *funcState) findLocal(name string) (byte, bool) {
	for i := len(fs.vars) - 1; i >= 0; i-- {
		if fs.vars[i].name == name {
			return fs.vars[i].reg, true
		}
	}
	return 0, false
}

// declaredInCurrentBlock reports whether name was already declared at
// or after the given block marker (register-stack snapshot used as a
// variable-count snapshot).
func (fs *funcState) declaredInCurrentBlock(name string, blockMark int) bool {
	for i := blockMark; i < len(fs.vars); i++ {
		if fs.vars[i].name == name {
			return true
		}
	}
	return false
}

// enterBlock returns a marker to pass to exitBlock.
func (fs *funcState) enterBlock() int { return len(fs.vars) }

// exitBlock trims the variable stack back to the state captured by
// enterBlock and lowers the register allocator to just above the
// highest register a remaining variable occupies.
func (fs *funcState) exitBlock(mark int) {
	fs.vars = fs.vars[:mark]
	fs.nextReg = 0
	for _, v := range fs.vars {
		if v.reg >= fs.nextReg {
			fs.nextReg = v.reg + 1
		}
	}
}

func (fs *funcState) findUpval(name string) (int, bool) {
	for i, n := range fs.upvalNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// resolveUpval implements the spec's upvalue-chain walk: a capture
// found at the immediately enclosing level is LOCAL; one found further
// out is threaded through every intermediate level as OUTER, producing
// a flat per-closure upvalue vector.
func resolveUpval(fs *funcState, name string) (int, bool) {
	if fs.parent == nil {
		return 0, false
	}
	if idx, ok := fs.findUpval(name); ok {
		return idx, true
	}
	if reg, ok := fs.parent.findLocal(name); ok {
		fs.upvals = append(fs.upvals, bytecode.UpvalDesc{Kind: bytecode.UpvalLocal, Index: reg})
		fs.upvalNames = append(fs.upvalNames, name)
		return len(fs.upvals) - 1, true
	}
	if outerIdx, ok := resolveUpval(fs.parent, name); ok {
		fs.upvals = append(fs.upvals, bytecode.UpvalDesc{Kind: bytecode.UpvalOuter, Index: byte(outerIdx)})
		fs.upvalNames = append(fs.upvalNames, name)
		return len(fs.upvals) - 1, true
	}
	return 0, false
}

func (fs *funcState) insideLoop() bool { return len(fs.loops) > 0 }

func (fs *funcState) pushLoop() *loopCtx {
	l := &loopCtx{}
	fs.loops = append(fs.loops, l)
	return l
}

func (fs *funcState) popLoop() {
	fs.loops = fs.loops[:len(fs.loops)-1]
}

func (fs *funcState) currentLoop() *loopCtx {
	if len(fs.loops) == 0 {
		return nil
	}
	return fs.loops[len(fs.loops)-1]
}

// emit appends in to the function's body and returns its index, used
// as a patch site for forward jumps.
func (fs *funcState) emit(in bytecode.Instr) int {
	fs.proto.Code = append(fs.proto.Code, in)
	return len(fs.proto.Code) - 1
}

// patchJump sets the displacement of the jump instruction at pc so it
// targets target (both instruction indices), relative to the
// instruction immediately following pc.
func (fs *funcState) patchJump(pc, target int) {
	fs.proto.Code[pc].Disp = int32(target - (pc + 1))
}

func (fs *funcState) here() int { return len(fs.proto.Code) }
