package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// StackFrame captures one call-stack entry at the time a runtime error
// was raised: the function's label (as frameLabel renders it) and the
// bytecode address within it.
type StackFrame struct {
	FuncName string
	Addr     int
}

// RuntimeError is spec.md §7's runtime-error category: a complete
// sentence, a category prefix, an instruction address, and a stack
// trace. It wraps an optional cause (e.g. a native function's
// returned error) via github.com/pkg/errors so host code can recover
// the original failure with errors.Cause while the top-level Error()
// string stays a self-contained sentence.
type RuntimeError struct {
	Message string
	Addr    int
	Stack   []StackFrame
	cause   error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "runtime error at address %d: %s", e.Addr, e.Message)
	for i := len(e.Stack) - 1; i >= 0; i-- {
		f := e.Stack[i]
		name := f.FuncName
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "\n  at %s (addr %d)", name, f.Addr)
	}
	return b.String()
}

// Cause returns the wrapped failure, if this error originated from a
// native function or another Go error.
func (e *RuntimeError) Cause() error { return e.cause }

func newRuntimeError(addr int, stack []StackFrame, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Addr: addr, Stack: stack}
}

func wrapRuntimeError(addr int, stack []StackFrame, cause error) *RuntimeError {
	return &RuntimeError{
		Message: errors.Wrap(cause, "native function failed").Error(),
		Addr:    addr,
		Stack:   stack,
		cause:   cause,
	}
}

// stackTrace snapshots the VM's current call stack, innermost frame
// last, for attaching to a RuntimeError raised at fr.
func (vm *VM) stackTrace() []StackFrame {
	trace := make([]StackFrame, len(vm.frames))
	for i, f := range vm.frames {
		trace[i] = StackFrame{FuncName: frameLabel(f), Addr: f.ip}
	}
	return trace
}

// runtimeErrorAt builds a RuntimeError positioned at fr's current
// instruction, with the full call stack attached, and traces it if a
// Tracer is installed.
func (vm *VM) runtimeErrorAt(fr *frame, format string, args ...interface{}) *RuntimeError {
	err := newRuntimeError(fr.ip-1, vm.stackTrace(), format, args...)
	vm.tracer.traceError(err)
	return err
}

// wrapErrorAt wraps a plain Go error (from an arithmetic/indexing
// helper) into a RuntimeError positioned at fr's current instruction,
// preserving the cause's own message rather than prefixing it the way
// wrapRuntimeError does for native-function failures.
func (vm *VM) wrapErrorAt(fr *frame, cause error) *RuntimeError {
	if re, ok := cause.(*RuntimeError); ok {
		return re
	}
	err := newRuntimeError(fr.ip-1, vm.stackTrace(), "%s", cause.Error())
	err.cause = cause
	vm.tracer.traceError(err)
	return err
}
