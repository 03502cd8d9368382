// Package engine wires the lexer, parser, compiler, and VM into the
// single entry point the CLI (and tests) drive a source file through.
package engine

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/compiler"
	"github.com/sparkling-lang/sparkling/pkg/parser"
	"github.com/sparkling-lang/sparkling/pkg/stdlib"
	"github.com/sparkling-lang/sparkling/pkg/value"
	"github.com/sparkling-lang/sparkling/pkg/vm"
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger attaches a structured logger shared by the compiler's and
// VM's optional diagnostic/tracing hooks.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTrace enables VM CALL/RET tracing and compiler debug events.
func WithTrace(enabled bool) Option {
	return func(e *Engine) { e.trace = enabled }
}

// WithHTTPAllowlist restricts the standard library's http_get to the
// given URLs.
func WithHTTPAllowlist(urls ...string) Option {
	return func(e *Engine) { e.httpAllowlist = urls }
}

// Engine is a ready-to-run Sparkling host configuration. It holds no VM
// itself: each run builds a fresh VM with the standard library bound
// into its global table.
type Engine struct {
	logger        zerolog.Logger
	trace         bool
	httpAllowlist []string
}

// New constructs an Engine. Each call to Run builds a fresh VM, since
// spec.md §4.4's GLBVAL write-once rule means a VM can run a top-level
// program at most once.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse runs the lexer/parser stage alone, for callers that only need
// the AST (e.g. --dump-ast).
func Parse(source string) (*ast.Program, error) {
	p := parser.New(source)
	prog, err := p.Parse()
	if err != nil {
		return nil, errors.Wrap(err, "parse failed")
	}
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("parse failed: %s", errs[0])
	}
	return prog, nil
}

// Compile parses and compiles source into a top-level FuncProto, for
// callers that only need the bytecode (e.g. --dump-bytecode).
func (e *Engine) Compile(source string) (*bytecode.FuncProto, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	opts := []compiler.Option{}
	if e.trace {
		opts = append(opts, compiler.WithLogger(e.logger), compiler.WithVerbose(true))
	}
	c := compiler.New(opts...)
	proto, err := c.CompileProgram(prog)
	if err != nil {
		return nil, err
	}
	return proto, nil
}

// newVM builds a fresh VM with the standard library bound in.
func (e *Engine) newVM() (*vm.VM, error) {
	opts := []vm.Option{}
	if e.trace {
		opts = append(opts, vm.WithLogger(e.logger, true))
	}
	machine := vm.New(opts...)

	libOpts := []stdlib.Option{stdlib.WithLogger(e.logger)}
	if e.httpAllowlist != nil {
		libOpts = append(libOpts, stdlib.WithHTTPAllowlist(e.httpAllowlist...))
	}
	lib := stdlib.New(libOpts...)
	if err := machine.AddCFuncs(lib.Funcs()); err != nil {
		return nil, errors.Wrap(err, "failed to bind standard library")
	}
	return machine, nil
}

// Run compiles and executes source in a fresh VM, returning its final
// value.
func (e *Engine) Run(source string) (value.Value, error) {
	proto, err := e.Compile(source)
	if err != nil {
		return value.Nil, err
	}
	machine, err := e.newVM()
	if err != nil {
		return value.Nil, err
	}
	return machine.Execute(proto)
}

// RunFiles runs each source file in order against its own fresh VM,
// matching spec.md §6's CLI contract ("accepts source files... and
// runs them in order"). It stops at the first error.
func (e *Engine) RunFiles(sources map[string]string, order []string) error {
	for _, name := range order {
		src, ok := sources[name]
		if !ok {
			continue
		}
		if _, err := e.Run(src); err != nil {
			return errors.Wrapf(err, "running %s", name)
		}
	}
	return nil
}
