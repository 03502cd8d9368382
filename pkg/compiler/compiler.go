// Package compiler walks a Sparkling AST and emits register-based
// bytecode (pkg/bytecode), resolving variables to registers, upvalues,
// or global symbol stubs as it goes.
//
// A Compiler instance is single-use: construct one with New, call
// CompileProgram once, and discard it. Nested function literals each
// get their own funcState (scope.go) linked to their enclosing
// function via the upvalue-resolution chain; the compiled program's
// local symbol table (string literals, global stubs, function
// definitions) is shared across every nested function and lives only
// on the top-level FuncProto, per spec.md §3.
package compiler

import (
	"github.com/rs/zerolog"

	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

// Option configures a Compiler at construction time.
type Option func(*Compiler)

// WithLogger attaches a structured logger; when set together with
// WithVerbose, the compiler emits one debug event per function
// compiled.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithVerbose turns on the compiler's debug-level tracing.
func WithVerbose(v bool) Option {
	return func(c *Compiler) { c.verbose = v }
}

// Compiler compiles one AST program into one top-level FuncProto.
type Compiler struct {
	logger  zerolog.Logger
	verbose bool

	strConsts map[string]int
	stubs     map[string]int
	symtab    []bytecode.SymEntry
}

// New constructs a Compiler ready for one CompileProgram call.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger:    zerolog.Nop(),
		strConsts: make(map[string]int),
		stubs:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileProgram compiles prog into a top-level program FuncProto. On
// the first semantic error encountered it stops and returns it; the
// compiler does not attempt multi-error recovery, matching the
// teacher's fail-fast diagnostic style.
func (c *Compiler) CompileProgram(prog *ast.Program) (*bytecode.FuncProto, error) {
	fs := newFuncState(nil, "")
	if err := c.compileBlockStmts(fs, prog.Children, 0); err != nil {
		return nil, err
	}
	c.emitImplicitReturn(fs)

	fs.proto.Argc = 0
	fs.proto.Nregs = regCount(fs)
	fs.proto.SymTab = c.symtab

	if c.verbose {
		c.logger.Debug().Int("instructions", len(fs.proto.Code)).Int("symbols", len(c.symtab)).Msg("compiled top-level program")
	}
	return fs.proto, nil
}

func regCount(fs *funcState) int {
	if int(fs.maxReg) == 0 {
		return 1
	}
	return int(fs.maxReg)
}

// emitImplicitReturn appends the unconditional `RET nil` every
// function body ends with, per spec.md §4.3.
func (c *Compiler) emitImplicitReturn(fs *funcState) {
	reg, err := fs.push()
	if err != nil {
		reg = 0
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpLdConst, A: reg, Kind: bytecode.ConstNil})
	fs.emit(bytecode.Instr{Op: bytecode.OpRet, A: reg})
}

// compileFuncBody compiles a function literal's parameter list and
// body into a fresh funcState linked to parent, returning the state so
// the caller can inspect the upvalues it accumulated.
func (c *Compiler) compileFuncBody(parent *funcState, lit *ast.FuncLit) (*funcState, error) {
	fs := newFuncState(parent, lit.Name)

	seen := make(map[string]bool, len(lit.Params))
	for _, p := range lit.Params {
		if seen[p] {
			return nil, newError(lit.Line, lit.Column, "duplicate parameter name %s", p)
		}
		seen[p] = true
		if _, err := fs.declareLocal(p); err != nil {
			return nil, err
		}
	}

	if err := c.compileBlockStmts(fs, lit.Body.Children, 0); err != nil {
		return nil, err
	}
	c.emitImplicitReturn(fs)

	fs.proto.Argc = len(lit.Params)
	fs.proto.Nregs = regCount(fs)
	if fs.proto.Nregs < fs.proto.Argc {
		fs.proto.Nregs = fs.proto.Argc
	}

	if c.verbose {
		c.logger.Debug().Str("name", lit.Name).Int("argc", fs.proto.Argc).Int("nregs", fs.proto.Nregs).Msg("compiled function")
	}
	return fs, nil
}

// --- local symbol table bookkeeping (shared across every nested
// function of the program being compiled) ---

func (c *Compiler) addStrConst(s string) int {
	if idx, ok := c.strConsts[s]; ok {
		return idx
	}
	idx := len(c.symtab)
	c.symtab = append(c.symtab, bytecode.SymEntry{Kind: bytecode.SymStrConst, Str: s})
	c.strConsts[s] = idx
	return idx
}

func (c *Compiler) addStub(name string) int {
	if idx, ok := c.stubs[name]; ok {
		return idx
	}
	idx := len(c.symtab)
	c.symtab = append(c.symtab, bytecode.SymEntry{Kind: bytecode.SymStub, Name: name})
	c.stubs[name] = idx
	return idx
}

func (c *Compiler) addFuncDef(name string, proto *bytecode.FuncProto) int {
	idx := len(c.symtab)
	c.symtab = append(c.symtab, bytecode.SymEntry{Kind: bytecode.SymFuncDef, Name: name, Proto: proto})
	return idx
}
