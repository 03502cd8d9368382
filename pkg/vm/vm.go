// Package vm implements the register-based virtual machine described
// in spec.md §4.4: a call stack of frames, a global table, load-time
// symbol resolution, and a dispatch loop over the instruction set
// pkg/bytecode defines.
package vm

import (
	"reflect"

	"github.com/rs/zerolog"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

// Option configures a VM at construction, the teacher's pattern for
// constructors with more than a couple of optional parameters.
type Option func(*VM)

// WithTracer attaches a structured tracing hook; omit it (the zero
// value) to run with tracing disabled, which costs one nil check per
// CALL/RET and nothing else.
func WithTracer(t *Tracer) Option {
	return func(vm *VM) { vm.tracer = t }
}

// WithLogger is a convenience over WithTracer for the common case of
// wanting trace events at debug level with no other configuration.
func WithLogger(logger zerolog.Logger, enabled bool) Option {
	return func(vm *VM) { vm.tracer = NewTracer(logger, enabled) }
}

// VM is one self-contained execution handle: its own global table,
// classes table, and call stack. Per spec.md §5, no state is shared
// between VM instances; heap objects created by one must never be
// passed to another.
type VM struct {
	globals map[string]*globalCell
	classes map[string]*value.HashMap
	tracer  *Tracer
	frames  []*frame
}

// New constructs an empty VM ready to load and run programs.
func New(opts ...Option) *VM {
	vm := &VM{
		globals: make(map[string]*globalCell),
		classes: make(map[string]*value.HashMap),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// RegisterClass installs a method table under name in the classes
// table, the supplemented feature backing METHOD dispatch against
// hashmap-backed objects (SPEC_FULL.md's "classes" addition).
func (vm *VM) RegisterClass(name string, methods *value.HashMap) {
	vm.classes[name] = methods
}

func nativeID(fn value.NativeFn) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Execute runs a compiled top-level program to completion, returning
// its final return value (the implicit-return-nil the compiler always
// appends if the source has no trailing return) or a *RuntimeError.
func (vm *VM) Execute(proto *bytecode.FuncProto) (value.Value, error) {
	prog := &program{proto: proto}
	vm.loadProgram(prog)

	nregs := proto.Nregs
	if nregs < 1 {
		nregs = 1
	}
	top := &frame{
		proto:    proto,
		regs:     make([]value.Value, nregs),
		prog:     prog,
		funcName: "<top-level>",
	}
	vm.frames = []*frame{top}
	return vm.run()
}

// run is the main fetch-decode-execute loop. It operates on an
// explicit stack of frames rather than Go call recursion so that a
// runtime error can unwind to a complete stack trace (spec.md §7)
// without depending on Go's own stack.
func (vm *VM) run() (value.Value, error) {
	for {
		if len(vm.frames) == 0 {
			return value.Nil, nil
		}
		fr := vm.frames[len(vm.frames)-1]
		if fr.ip >= len(fr.proto.Code) {
			return value.Nil, vm.runtimeErrorAt(fr, "instruction pointer ran past the end of %s", frameLabel(fr))
		}
		instr := fr.proto.Code[fr.ip]
		fr.ip++

		switch instr.Op {
		case bytecode.OpRet:
			retVal := fr.regs[instr.A]
			releaseFrame(fr, int(instr.A))
			vm.tracer.traceReturn(fr)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return retVal, nil
			}
			caller := vm.frames[len(vm.frames)-1]
			storeReg(caller, fr.retReg, retVal)

		case bytecode.OpCall:
			if err := vm.execCall(fr, instr); err != nil {
				return value.Nil, err
			}

		case bytecode.OpJmp:
			fr.ip += int(instr.Disp)

		case bytecode.OpJze:
			if !fr.regs[instr.A].Truthy() {
				fr.ip += int(instr.Disp)
			}

		case bytecode.OpJnz:
			if fr.regs[instr.A].Truthy() {
				fr.ip += int(instr.Disp)
			}

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			res, err := execArith(instr.Op, fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpEq, bytecode.OpNe, bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			res, err := execCompare(instr.Op, fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpAnd, bytecode.OpOr, bytecode.OpXor, bytecode.OpShl, bytecode.OpShr:
			res, err := execBitwise(instr.Op, fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpNeg, bytecode.OpBitNot, bytecode.OpLogNot, bytecode.OpTypeof:
			res, err := execUnary(instr.Op, fr.regs[instr.B])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpSizeof:
			res, err := execSizeof(fr.regs[instr.B])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpNthArg:
			idx := fr.regs[instr.B].AsInt()
			var v value.Value
			if idx >= 0 && idx < int64(len(fr.rawArgs)) {
				v = fr.rawArgs[idx]
			}
			if v.IsObject() {
				value.Retain(v)
			}
			storeReg(fr, instr.A, v)

		case bytecode.OpConcat:
			res, err := concatValues(fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpInc, bytecode.OpDec:
			res, err := execIncDec(instr.Op, fr.regs[instr.A])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpLdConst:
			storeReg(fr, instr.A, constValue(instr))

		case bytecode.OpLdSym, bytecode.OpFunction:
			v, err := vm.loadSym(fr, instr.SymIdx)
			if err != nil {
				return value.Nil, err
			}
			storeReg(fr, instr.A, v)

		case bytecode.OpLdUpval:
			v := fr.upvals[instr.SymIdx]
			if v.IsObject() {
				value.Retain(v)
			}
			storeReg(fr, instr.A, v)

		case bytecode.OpMov:
			v := fr.regs[instr.B]
			if v.IsObject() {
				value.Retain(v)
			}
			storeReg(fr, instr.A, v)

		case bytecode.OpArgv:
			elems := make([]value.Value, len(fr.rawArgs))
			for i, v := range fr.rawArgs {
				if v.IsObject() {
					value.Retain(v)
				}
				elems[i] = v
			}
			storeReg(fr, instr.A, value.FromObject(value.KArray, value.NewArrayFrom(elems)))

		case bytecode.OpNewArr:
			storeReg(fr, instr.A, value.FromObject(value.KArray, value.NewArray()))

		case bytecode.OpNewHash:
			storeReg(fr, instr.A, value.FromObject(value.KHashMap, value.NewHashMap()))

		case bytecode.OpIdxGet:
			res, err := indexGet(fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpIdxSet:
			if err := indexSet(fr.regs[instr.A], fr.regs[instr.B], fr.regs[instr.C]); err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}

		case bytecode.OpArrPush:
			arr, ok := arrayOf(fr.regs[instr.A])
			if !ok {
				return value.Nil, vm.runtimeErrorAt(fr, "array push target is not an array")
			}
			v := fr.regs[instr.B]
			if v.IsObject() {
				value.Retain(v)
			}
			arr.Push(v)

		case bytecode.OpGlbVal:
			if err := vm.defineGlobal(fr, instr.Name, fr.regs[instr.A]); err != nil {
				return value.Nil, err
			}

		case bytecode.OpClosure:
			if err := vm.makeClosure(fr, instr); err != nil {
				return value.Nil, err
			}

		case bytecode.OpMethod:
			res, err := vm.methodLookup(fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpPropGet:
			res, err := propGet(fr.regs[instr.B], fr.regs[instr.C])
			if err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}
			storeReg(fr, instr.A, res)

		case bytecode.OpPropSet:
			if err := propSet(fr.regs[instr.A], fr.regs[instr.B], fr.regs[instr.C]); err != nil {
				return value.Nil, vm.wrapErrorAt(fr, err)
			}

		default:
			return value.Nil, vm.runtimeErrorAt(fr, "unimplemented opcode %s", instr.Op)
		}
	}
}

func frameLabel(fr *frame) string {
	if fr.funcName != "" {
		return fr.funcName
	}
	if fr.proto.Name != "" {
		return fr.proto.Name
	}
	return "<anonymous>"
}
