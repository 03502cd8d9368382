package compiler

import (
	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

// compileAssign and compileCompoundAssign only accept the three legal
// lvalue shapes the spec names: identifier, subscript, member. Any
// other left-hand side is rejected by the type switch's default case.
//
// Intermediate registers used to address a subscript/member target
// (the base object, the key, the interned property name) are
// deliberately not popped after the store: reclaiming them would
// require violating the register stack's strict LIFO discipline, since
// the assigned value's register is pushed after them and must survive
// as the expression's result. They are reclaimed at the next enclosing
// block's exit instead, same as any other short-lived temporary.
func (c *Compiler) compileAssign(fs *funcState, n *ast.Assign) (byte, bool, error) {
	switch left := n.Left.(type) {
	case *ast.Ident:
		return c.assignIdent(fs, left, n.Right)
	case *ast.Index:
		return c.assignIndex(fs, left, n.Right)
	case *ast.Member:
		return c.assignMember(fs, left, n.Right)
	default:
		return 0, false, newError(n.Line, n.Column, "assignment target must be a variable, subscript, or property")
	}
}

func (c *Compiler) assignIdent(fs *funcState, left *ast.Ident, rhs ast.Expression) (byte, bool, error) {
	if reg, ok := fs.findLocal(left.Name); ok {
		valReg, valTemp, err := c.compileExpr(fs, rhs)
		if err != nil {
			return 0, false, err
		}
		if valReg != reg {
			fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: reg, B: valReg})
		}
		if valTemp {
			fs.pop()
		}
		return reg, false, nil
	}
	if _, ok := resolveUpval(fs, left.Name); ok {
		return 0, false, newError(left.Line, left.Column, "cannot assign to captured variable %s", left.Name)
	}
	valReg, valTemp, err := c.compileExpr(fs, rhs)
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpGlbVal, A: valReg, Name: left.Name})
	return valReg, valTemp, nil
}

func (c *Compiler) assignIndex(fs *funcState, left *ast.Index, rhs ast.Expression) (byte, bool, error) {
	baseReg, _, err := c.compileExpr(fs, left.X)
	if err != nil {
		return 0, false, err
	}
	keyReg, _, err := c.compileExpr(fs, left.Key)
	if err != nil {
		return 0, false, err
	}
	valReg, valTemp, err := c.compileExpr(fs, rhs)
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpIdxSet, A: baseReg, B: keyReg, C: valReg})
	return valReg, valTemp, nil
}

func (c *Compiler) assignMember(fs *funcState, left *ast.Member, rhs ast.Expression) (byte, bool, error) {
	baseReg, _, err := c.compileExpr(fs, left.X)
	if err != nil {
		return 0, false, err
	}
	nameReg, err := c.loadPropName(fs, left.Name)
	if err != nil {
		return 0, false, err
	}
	valReg, valTemp, err := c.compileExpr(fs, rhs)
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpPropSet, A: baseReg, B: nameReg, C: valReg})
	return valReg, valTemp, nil
}

func (c *Compiler) loadPropName(fs *funcState, name string) (byte, error) {
	symIdx := c.addStrConst(name)
	reg, err := fs.push()
	if err != nil {
		return 0, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: reg, SymIdx: symIdx})
	return reg, nil
}

func (c *Compiler) compileCompoundAssign(fs *funcState, n *ast.CompoundAssign) (byte, bool, error) {
	op, ok := binOps[n.Op]
	if !ok {
		return 0, false, newError(n.Line, n.Column, "unsupported compound operator %s=", n.Op)
	}
	switch left := n.Left.(type) {
	case *ast.Ident:
		reg, ok := fs.findLocal(left.Name)
		if !ok {
			if _, isUpval := resolveUpval(fs, left.Name); isUpval {
				return 0, false, newError(left.Line, left.Column, "cannot assign to captured variable %s", left.Name)
			}
			symIdx := c.addStub(left.Name)
			reg, err := fs.push()
			if err != nil {
				return 0, false, err
			}
			fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: reg, SymIdx: symIdx})
			rreg, rtemp, err := c.compileExpr(fs, n.Right)
			if err != nil {
				return 0, false, err
			}
			fs.emit(bytecode.Instr{Op: op, A: reg, B: reg, C: rreg})
			if rtemp {
				fs.pop()
			}
			fs.emit(bytecode.Instr{Op: bytecode.OpGlbVal, A: reg, Name: left.Name})
			return reg, true, nil
		}
		rreg, rtemp, err := c.compileExpr(fs, n.Right)
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: op, A: reg, B: reg, C: rreg})
		if rtemp {
			fs.pop()
		}
		return reg, false, nil

	case *ast.Index:
		baseReg, _, err := c.compileExpr(fs, left.X)
		if err != nil {
			return 0, false, err
		}
		keyReg, _, err := c.compileExpr(fs, left.Key)
		if err != nil {
			return 0, false, err
		}
		curReg, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpIdxGet, A: curReg, B: baseReg, C: keyReg})
		rreg, rtemp, err := c.compileExpr(fs, n.Right)
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: op, A: curReg, B: curReg, C: rreg})
		if rtemp {
			fs.pop()
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpIdxSet, A: baseReg, B: keyReg, C: curReg})
		return curReg, true, nil

	case *ast.Member:
		baseReg, _, err := c.compileExpr(fs, left.X)
		if err != nil {
			return 0, false, err
		}
		nameReg, err := c.loadPropName(fs, left.Name)
		if err != nil {
			return 0, false, err
		}
		curReg, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpPropGet, A: curReg, B: baseReg, C: nameReg})
		rreg, rtemp, err := c.compileExpr(fs, n.Right)
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: op, A: curReg, B: curReg, C: rreg})
		if rtemp {
			fs.pop()
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpPropSet, A: baseReg, B: nameReg, C: curReg})
		return curReg, true, nil

	default:
		return 0, false, newError(n.Line, n.Column, "assignment target must be a variable, subscript, or property")
	}
}

func (c *Compiler) compileIncDec(fs *funcState, n *ast.IncDec) (byte, bool, error) {
	op := bytecode.OpInc
	if n.Op == "--" {
		op = bytecode.OpDec
	}
	switch target := n.X.(type) {
	case *ast.Ident:
		reg, ok := fs.findLocal(target.Name)
		if !ok {
			return 0, false, newError(target.Line, target.Column, "%s is not assignable", target.Name)
		}
		if n.Prefix {
			fs.emit(bytecode.Instr{Op: op, A: reg})
			return reg, false, nil
		}
		old, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: old, B: reg})
		fs.emit(bytecode.Instr{Op: op, A: reg})
		return old, true, nil

	case *ast.Index:
		baseReg, _, err := c.compileExpr(fs, target.X)
		if err != nil {
			return 0, false, err
		}
		keyReg, _, err := c.compileExpr(fs, target.Key)
		if err != nil {
			return 0, false, err
		}
		cur, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpIdxGet, A: cur, B: baseReg, C: keyReg})
		if n.Prefix {
			fs.emit(bytecode.Instr{Op: op, A: cur})
			fs.emit(bytecode.Instr{Op: bytecode.OpIdxSet, A: baseReg, B: keyReg, C: cur})
			return cur, true, nil
		}
		old, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: old, B: cur})
		fs.emit(bytecode.Instr{Op: op, A: cur})
		fs.emit(bytecode.Instr{Op: bytecode.OpIdxSet, A: baseReg, B: keyReg, C: cur})
		return old, true, nil

	case *ast.Member:
		baseReg, _, err := c.compileExpr(fs, target.X)
		if err != nil {
			return 0, false, err
		}
		nameReg, err := c.loadPropName(fs, target.Name)
		if err != nil {
			return 0, false, err
		}
		cur, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpPropGet, A: cur, B: baseReg, C: nameReg})
		if n.Prefix {
			fs.emit(bytecode.Instr{Op: op, A: cur})
			fs.emit(bytecode.Instr{Op: bytecode.OpPropSet, A: baseReg, B: nameReg, C: cur})
			return cur, true, nil
		}
		old, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: old, B: cur})
		fs.emit(bytecode.Instr{Op: op, A: cur})
		fs.emit(bytecode.Instr{Op: bytecode.OpPropSet, A: baseReg, B: nameReg, C: cur})
		return old, true, nil

	default:
		return 0, false, newError(n.Line, n.Column, "%s requires a variable, subscript, or property operand", n.Op)
	}
}
