package vm

import (
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

// loadSym implements LDSYM/FUNCTION: resolving one entry of the owning
// program's symbol table into a register value, retaining it since the
// symbol table keeps its own independent reference (spec.md §4.4).
func (vm *VM) loadSym(fr *frame, symIdx int) (value.Value, error) {
	if symIdx < 0 || symIdx >= len(fr.prog.resolved) {
		return value.Nil, vm.runtimeErrorAt(fr, "symbol index %d out of range", symIdx)
	}
	rs := fr.prog.resolved[symIdx]
	switch rs.kind {
	case bytecode.SymStrConst:
		rs.str.Retain()
		return value.FromObject(value.KString, rs.str), nil
	case bytecode.SymStub:
		if !rs.cell.defined {
			return value.Nil, vm.runtimeErrorAt(fr, "undefined global symbol")
		}
		v := rs.cell.value
		if v.IsObject() {
			value.Retain(v)
		}
		return v, nil
	case bytecode.SymFuncDef:
		rs.fn.Retain()
		return value.FromObject(value.KFunction, rs.fn), nil
	default:
		return value.Nil, vm.runtimeErrorAt(fr, "corrupt symbol table entry at index %d", symIdx)
	}
}

// execCall implements spec.md §4.4's three-step CALL protocol: native
// functions run synchronously and store a value directly; script
// functions and closures push a new frame and let run's loop continue
// from there.
func (vm *VM) execCall(fr *frame, instr bytecode.Instr) error {
	calleeVal := fr.regs[instr.B]
	if !calleeVal.IsFunction() {
		return vm.runtimeErrorAt(fr, "attempt to call a %s value", value.TypeName(calleeVal))
	}
	fn := calleeVal.Object().(*value.Function)

	argv := make([]value.Value, len(instr.Args))
	for i, r := range instr.Args {
		argv[i] = fr.regs[r]
	}

	if fn.Variant == value.FnNative {
		ret, err := fn.Native(argv)
		if err != nil {
			return wrapRuntimeError(fr.ip-1, vm.stackTrace(), err)
		}
		storeReg(fr, instr.A, ret)
		return nil
	}

	fp, ok := fn.Proto.(*funcProto)
	if !ok {
		return vm.runtimeErrorAt(fr, "callable %s has no compiled body", fn.Name)
	}
	vm.loadProgram(fp.prog)

	nregs := fp.proto.Nregs
	if nregs < 1 {
		nregs = 1
	}
	regs := make([]value.Value, nregs)
	for i := 0; i < fp.proto.Argc; i++ {
		if i < len(argv) {
			v := argv[i]
			if v.IsObject() {
				value.Retain(v)
			}
			regs[i] = v
		}
	}

	callee := &frame{
		proto:    fp.proto,
		regs:     regs,
		prog:     fp.prog,
		upvals:   fn.Upvalues,
		rawArgs:  argv,
		retReg:   instr.A,
		funcName: fn.Name,
	}
	vm.tracer.traceCall(fr, fp.proto)
	vm.frames = append(vm.frames, callee)
	return nil
}

// makeClosure implements CLOSURE: the script function sitting in
// register A is replaced by a closure whose upvalues are resolved
// against the currently executing frame, per spec.md §4.4 — each LOCAL
// descriptor captures a register of this frame by value, each OUTER
// descriptor copies an upvalue already captured by this frame's own
// closure (if fr is itself a closure).
func (vm *VM) makeClosure(fr *frame, instr bytecode.Instr) error {
	base := fr.regs[instr.A]
	if !base.IsFunction() {
		return vm.runtimeErrorAt(fr, "CLOSURE target is not a function")
	}
	baseFn := base.Object().(*value.Function)

	upvalues := make([]value.Value, len(instr.Upvals))
	for i, d := range instr.Upvals {
		var v value.Value
		switch d.Kind {
		case bytecode.UpvalLocal:
			v = fr.regs[d.Index]
		case bytecode.UpvalOuter:
			if int(d.Index) >= len(fr.upvals) {
				return vm.runtimeErrorAt(fr, "closure outer-upvalue index %d out of range", d.Index)
			}
			v = fr.upvals[d.Index]
		}
		if v.IsObject() {
			value.Retain(v)
		}
		upvalues[i] = v
	}

	closure := value.NewClosure(baseFn.Name, baseFn.Proto, upvalues)
	storeReg(fr, instr.A, value.FromObject(value.KFunction, closure))
	return nil
}

// constValue materializes an LDCONST instruction's payload. String
// constants never reach here: the compiler interns them through the
// symbol table and emits LDSYM instead.
func constValue(instr bytecode.Instr) value.Value {
	switch instr.Kind {
	case bytecode.ConstNil:
		return value.Nil
	case bytecode.ConstTrue:
		return value.Bool(true)
	case bytecode.ConstFalse:
		return value.Bool(false)
	case bytecode.ConstInt:
		return value.Int(instr.IntVal)
	case bytecode.ConstFloat:
		return value.Float(instr.FloatVal)
	default:
		return value.Nil
	}
}
