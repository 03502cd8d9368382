package compiler

import (
	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

// compileBlockStmts compiles a statement sequence as one lexical
// block. mark is the variable-stack position new declarations are
// checked against for redeclaration and trimmed back to on exit;
// passing the position captured before a function's parameters were
// declared folds the parameter list into the same scope as the
// function's top-level locals.
func (c *Compiler) compileBlockStmts(fs *funcState, stmts []ast.Statement, mark int) error {
	for _, stmt := range stmts {
		if err := c.compileStmt(fs, stmt, mark); err != nil {
			return err
		}
	}
	fs.exitBlock(mark)
	return nil
}

func (c *Compiler) compileStmt(fs *funcState, stmt ast.Statement, mark int) error {
	switch s := stmt.(type) {
	case *ast.Block:
		return c.compileBlockStmts(fs, s.Children, fs.enterBlock())

	case *ast.VarDecl:
		return c.compileDecl(fs, s.Children, mark)

	case *ast.ConstDecl:
		return c.compileDecl(fs, s.Children, mark)

	case *ast.ExprStatement:
		reg, isTemp, err := c.compileExpr(fs, s.X)
		if err != nil {
			return err
		}
		if isTemp {
			fs.pop()
		}
		_ = reg
		return nil

	case *ast.If:
		return c.compileIf(fs, s)

	case *ast.While:
		return c.compileWhile(fs, s)

	case *ast.DoWhile:
		return c.compileDoWhile(fs, s)

	case *ast.For:
		return c.compileFor(fs, s)

	case *ast.Break:
		if !fs.insideLoop() {
			return newError(s.Line, s.Column, "break outside a loop")
		}
		pc := fs.emit(bytecode.Instr{Op: bytecode.OpJmp})
		loop := fs.currentLoop()
		loop.breakSites = append(loop.breakSites, pc)
		return nil

	case *ast.Continue:
		if !fs.insideLoop() {
			return newError(s.Line, s.Column, "continue outside a loop")
		}
		pc := fs.emit(bytecode.Instr{Op: bytecode.OpJmp})
		loop := fs.currentLoop()
		loop.continueSites = append(loop.continueSites, pc)
		return nil

	case *ast.Return:
		if s.X == nil {
			reg, err := fs.push()
			if err != nil {
				return err
			}
			fs.emit(bytecode.Instr{Op: bytecode.OpLdConst, A: reg, Kind: bytecode.ConstNil})
			fs.emit(bytecode.Instr{Op: bytecode.OpRet, A: reg})
			fs.pop()
			return nil
		}
		reg, isTemp, err := c.compileExpr(fs, s.X)
		if err != nil {
			return err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpRet, A: reg})
		if isTemp {
			fs.pop()
		}
		return nil

	case *ast.FuncLit:
		return c.compileFuncDecl(fs, s, mark)

	default:
		return newError(0, 0, "unsupported statement %T", stmt)
	}
}

func (c *Compiler) compileDecl(fs *funcState, bindings []*ast.Binding, mark int) error {
	for _, b := range bindings {
		if fs.declaredInCurrentBlock(b.Name, mark) {
			return newError(0, 0, "redeclaration of %s in the same scope", b.Name)
		}
		reg, err := fs.declareLocal(b.Name)
		if err != nil {
			return err
		}
		if b.Init == nil {
			fs.emit(bytecode.Instr{Op: bytecode.OpLdConst, A: reg, Kind: bytecode.ConstNil})
			continue
		}
		valReg, isTemp, err := c.compileExpr(fs, b.Init)
		if err != nil {
			return err
		}
		if valReg != reg {
			fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: reg, B: valReg})
		}
		if isTemp {
			fs.pop()
		}
	}
	return nil
}

// compileFuncDecl compiles a named function declaration. Its register
// becomes a local of the current scope; at the top level it is also
// installed as a global so other top-level functions can forward-
// reference it by name (the mechanism behind spec.md §8 scenario 6).
func (c *Compiler) compileFuncDecl(fs *funcState, lit *ast.FuncLit, mark int) error {
	if lit.Name == "" {
		_, isTemp, err := c.compileExpr(fs, lit)
		if err != nil {
			return err
		}
		if isTemp {
			fs.pop()
		}
		return nil
	}
	if fs.declaredInCurrentBlock(lit.Name, mark) {
		return newError(lit.Line, lit.Column, "redeclaration of %s in the same scope", lit.Name)
	}

	nested, err := c.compileFuncBody(fs, lit)
	if err != nil {
		return err
	}
	symIdx := c.addFuncDef(lit.Name, nested.proto)

	reg, err := fs.declareLocal(lit.Name)
	if err != nil {
		return err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: reg, SymIdx: symIdx})
	if len(nested.upvals) > 0 {
		fs.emit(bytecode.Instr{Op: bytecode.OpClosure, A: reg, Upvals: nested.upvals})
	}
	if fs.parent == nil {
		fs.emit(bytecode.Instr{Op: bytecode.OpGlbVal, A: reg, Name: lit.Name})
	}
	return nil
}

func (c *Compiler) compileIf(fs *funcState, n *ast.If) error {
	condReg, isTemp, err := c.compileExpr(fs, n.Cond)
	if err != nil {
		return err
	}
	jzePC := fs.emit(bytecode.Instr{Op: bytecode.OpJze, A: condReg})
	if isTemp {
		fs.pop()
	}

	if err := c.compileStmt(fs, n.Then, fs.enterBlock()); err != nil {
		return err
	}

	if n.Else == nil {
		fs.patchJump(jzePC, fs.here())
		return nil
	}
	jmpEndPC := fs.emit(bytecode.Instr{Op: bytecode.OpJmp})
	fs.patchJump(jzePC, fs.here())
	if err := c.compileStmt(fs, n.Else, fs.enterBlock()); err != nil {
		return err
	}
	fs.patchJump(jmpEndPC, fs.here())
	return nil
}

func (c *Compiler) compileWhile(fs *funcState, n *ast.While) error {
	loop := fs.pushLoop()
	condStart := fs.here()
	condReg, isTemp, err := c.compileExpr(fs, n.Cond)
	if err != nil {
		return err
	}
	jzePC := fs.emit(bytecode.Instr{Op: bytecode.OpJze, A: condReg})
	if isTemp {
		fs.pop()
	}

	if err := c.compileStmt(fs, n.Body, fs.enterBlock()); err != nil {
		return err
	}
	backPC := fs.emit(bytecode.Instr{Op: bytecode.OpJmp})
	fs.patchJump(backPC, condStart)
	end := fs.here()
	fs.patchJump(jzePC, end)

	for _, pc := range loop.breakSites {
		fs.patchJump(pc, end)
	}
	for _, pc := range loop.continueSites {
		fs.patchJump(pc, condStart)
	}
	fs.popLoop()
	return nil
}

func (c *Compiler) compileDoWhile(fs *funcState, n *ast.DoWhile) error {
	loop := fs.pushLoop()
	bodyStart := fs.here()

	if err := c.compileStmt(fs, n.Body, fs.enterBlock()); err != nil {
		return err
	}

	condStart := fs.here()
	condReg, isTemp, err := c.compileExpr(fs, n.Cond)
	if err != nil {
		return err
	}
	jnzPC := fs.emit(bytecode.Instr{Op: bytecode.OpJnz, A: condReg})
	fs.patchJump(jnzPC, bodyStart)
	if isTemp {
		fs.pop()
	}
	end := fs.here()

	for _, pc := range loop.breakSites {
		fs.patchJump(pc, end)
	}
	for _, pc := range loop.continueSites {
		fs.patchJump(pc, condStart)
	}
	fs.popLoop()
	return nil
}

func (c *Compiler) compileFor(fs *funcState, n *ast.For) error {
	mark := fs.enterBlock()
	if n.Init != nil {
		if err := c.compileStmt(fs, n.Init, mark); err != nil {
			return err
		}
	}

	loop := fs.pushLoop()
	condStart := fs.here()
	var jzePC int
	hasCond := n.Cond != nil
	if hasCond {
		condReg, isTemp, err := c.compileExpr(fs, n.Cond)
		if err != nil {
			return err
		}
		jzePC = fs.emit(bytecode.Instr{Op: bytecode.OpJze, A: condReg})
		if isTemp {
			fs.pop()
		}
	}

	if err := c.compileStmt(fs, n.Body, fs.enterBlock()); err != nil {
		return err
	}

	incrStart := fs.here()
	if n.Incr != nil {
		if err := c.compileStmt(fs, n.Incr, fs.enterBlock()); err != nil {
			return err
		}
	}
	backPC := fs.emit(bytecode.Instr{Op: bytecode.OpJmp})
	fs.patchJump(backPC, condStart)
	end := fs.here()
	if hasCond {
		fs.patchJump(jzePC, end)
	}

	for _, pc := range loop.breakSites {
		fs.patchJump(pc, end)
	}
	for _, pc := range loop.continueSites {
		fs.patchJump(pc, incrStart)
	}
	fs.popLoop()
	fs.exitBlock(mark)
	return nil
}
