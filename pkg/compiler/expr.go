package compiler

import (
	"github.com/sparkling-lang/sparkling/pkg/ast"
	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

// compileExpr compiles e into one or more instructions and returns the
// register holding its value, plus whether that register is a
// temporary the caller must release with fs.pop() once done (a plain
// local-variable read returns its permanent register and isTemp=false,
// per spec.md §4.3's "variables are addressed by their slot directly
// to avoid copies").
func (c *Compiler) compileExpr(fs *funcState, e ast.Expression) (reg byte, isTemp bool, err error) {
	switch x := e.(type) {
	case *ast.Literal:
		return c.compileLiteral(fs, x)
	case *ast.Ident:
		return c.compileIdent(fs, x)
	case *ast.ArrayLit:
		return c.compileArrayLit(fs, x)
	case *ast.HashMapLit:
		return c.compileHashMapLit(fs, x)
	case *ast.Call:
		return c.compileCall(fs, x)
	case *ast.Index:
		return c.compileIndexGet(fs, x)
	case *ast.Member:
		return c.compilePropGet(fs, x)
	case *ast.BinaryExpr:
		return c.compileBinary(fs, x)
	case *ast.UnaryExpr:
		return c.compileUnary(fs, x)
	case *ast.IncDec:
		return c.compileIncDec(fs, x)
	case *ast.Assign:
		return c.compileAssign(fs, x)
	case *ast.CompoundAssign:
		return c.compileCompoundAssign(fs, x)
	case *ast.Ternary:
		return c.compileTernary(fs, x)
	case *ast.FuncLit:
		return c.compileFuncLitExpr(fs, x)
	default:
		return 0, false, newError(0, 0, "unsupported expression %T", e)
	}
}

func (c *Compiler) compileLiteral(fs *funcState, lit *ast.Literal) (byte, bool, error) {
	dest, err := fs.push()
	if err != nil {
		return 0, false, err
	}
	in := bytecode.Instr{Op: bytecode.OpLdConst, A: dest}
	switch lit.Kind {
	case ast.LitNil:
		in.Kind = bytecode.ConstNil
	case ast.LitBool:
		if lit.Bool {
			in.Kind = bytecode.ConstTrue
		} else {
			in.Kind = bytecode.ConstFalse
		}
	case ast.LitInt:
		in.Kind = bytecode.ConstInt
		in.IntVal = lit.Int
	case ast.LitFloat:
		in.Kind = bytecode.ConstFloat
		in.FloatVal = lit.Flt
	case ast.LitString:
		symIdx := c.addStrConst(lit.Str)
		fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: dest, SymIdx: symIdx})
		return dest, true, nil
	}
	fs.emit(in)
	return dest, true, nil
}

func (c *Compiler) compileIdent(fs *funcState, id *ast.Ident) (byte, bool, error) {
	if reg, ok := fs.findLocal(id.Name); ok {
		return reg, false, nil
	}
	if idx, ok := resolveUpval(fs, id.Name); ok {
		dest, err := fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpLdUpval, A: dest, SymIdx: idx})
		return dest, true, nil
	}
	symIdx := c.addStub(id.Name)
	dest, err := fs.push()
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: dest, SymIdx: symIdx})
	return dest, true, nil
}

func (c *Compiler) compileArrayLit(fs *funcState, lit *ast.ArrayLit) (byte, bool, error) {
	dest, err := fs.push()
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpNewArr, A: dest})
	for _, elem := range lit.Children {
		valReg, isTemp, err := c.compileExpr(fs, elem)
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpArrPush, A: dest, B: valReg})
		if isTemp {
			fs.pop()
		}
	}
	return dest, true, nil
}

func (c *Compiler) compileHashMapLit(fs *funcState, lit *ast.HashMapLit) (byte, bool, error) {
	dest, err := fs.push()
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpNewHash, A: dest})
	for i := 0; i+1 < len(lit.Children); i += 2 {
		keyReg, keyTemp, err := c.compileExpr(fs, lit.Children[i])
		if err != nil {
			return 0, false, err
		}
		valReg, valTemp, err := c.compileExpr(fs, lit.Children[i+1])
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpIdxSet, A: dest, B: keyReg, C: valReg})
		if valTemp {
			fs.pop()
		}
		if keyTemp {
			fs.pop()
		}
	}
	return dest, true, nil
}

func (c *Compiler) compileCall(fs *funcState, call *ast.Call) (byte, bool, error) {
	calleeReg, calleeTemp, err := c.compileExpr(fs, call.Callee())
	if err != nil {
		return 0, false, err
	}
	dest := calleeReg
	if !calleeTemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
	}

	var args []byte
	nTemps := 0
	for _, a := range call.Args() {
		argReg, argTemp, err := c.compileExpr(fs, a)
		if err != nil {
			return 0, false, err
		}
		args = append(args, argReg)
		if argTemp {
			nTemps++
		}
	}

	fs.emit(bytecode.Instr{Op: bytecode.OpCall, A: dest, B: calleeReg, C: byte(len(args)), Args: args})
	for ; nTemps > 0; nTemps-- {
		fs.pop()
	}
	return dest, true, nil
}

func (c *Compiler) compileIndexGet(fs *funcState, n *ast.Index) (byte, bool, error) {
	xReg, xTemp, err := c.compileExpr(fs, n.X)
	if err != nil {
		return 0, false, err
	}
	dest := xReg
	if !xTemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
	}
	keyReg, keyTemp, err := c.compileExpr(fs, n.Key)
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpIdxGet, A: dest, B: xReg, C: keyReg})
	if keyTemp {
		fs.pop()
	}
	return dest, true, nil
}

// compilePropGet reads X.Name as a property access against the
// supplemented classes-table object model: it compiles to the same
// PROPGET opcode with the name interned as a string symbol.
func (c *Compiler) compilePropGet(fs *funcState, n *ast.Member) (byte, bool, error) {
	xReg, xTemp, err := c.compileExpr(fs, n.X)
	if err != nil {
		return 0, false, err
	}
	dest := xReg
	if !xTemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
	}
	nameSym := c.addStrConst(n.Name)
	nameReg, err := fs.push()
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: nameReg, SymIdx: nameSym})
	fs.emit(bytecode.Instr{Op: bytecode.OpPropGet, A: dest, B: xReg, C: nameReg})
	fs.pop()
	return dest, true, nil
}

var binOps = map[string]bytecode.Opcode{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
	"&": bytecode.OpAnd, "|": bytecode.OpOr, "^": bytecode.OpXor,
	"<<": bytecode.OpShl, ">>": bytecode.OpShr,
	"..": bytecode.OpConcat,
}

func (c *Compiler) compileBinary(fs *funcState, n *ast.BinaryExpr) (byte, bool, error) {
	if n.Op == "&&" || n.Op == "||" {
		return c.compileShortCircuit(fs, n)
	}
	op, ok := binOps[n.Op]
	if !ok {
		return 0, false, newError(n.Line, n.Column, "unsupported operator %s", n.Op)
	}
	lreg, ltemp, err := c.compileExpr(fs, n.Left)
	if err != nil {
		return 0, false, err
	}
	dest := lreg
	if !ltemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
	}
	rreg, rtemp, err := c.compileExpr(fs, n.Right)
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: op, A: dest, B: lreg, C: rreg})
	if rtemp {
		fs.pop()
	}
	return dest, true, nil
}

// compileShortCircuit implements && and || without a dedicated opcode:
// && evaluates Right only if Left is truthy, || only if Left is
// falsy — both branch on the same JZE/JNZ opcodes control flow uses.
func (c *Compiler) compileShortCircuit(fs *funcState, n *ast.BinaryExpr) (byte, bool, error) {
	lreg, ltemp, err := c.compileExpr(fs, n.Left)
	if err != nil {
		return 0, false, err
	}
	dest := lreg
	if !ltemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: dest, B: lreg})
	}
	var skipPC int
	if n.Op == "&&" {
		skipPC = fs.emit(bytecode.Instr{Op: bytecode.OpJze, A: dest})
	} else {
		skipPC = fs.emit(bytecode.Instr{Op: bytecode.OpJnz, A: dest})
	}
	rreg, rtemp, err := c.compileExpr(fs, n.Right)
	if err != nil {
		return 0, false, err
	}
	if rreg != dest {
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: dest, B: rreg})
	}
	if rtemp {
		fs.pop()
	}
	fs.patchJump(skipPC, fs.here())
	return dest, true, nil
}

var unaryOps = map[string]bytecode.Opcode{
	"-": bytecode.OpNeg, "!": bytecode.OpLogNot, "~": bytecode.OpBitNot,
	"typeof": bytecode.OpTypeof, "sizeof": bytecode.OpSizeof,
}

func (c *Compiler) compileUnary(fs *funcState, n *ast.UnaryExpr) (byte, bool, error) {
	op, ok := unaryOps[n.Op]
	if !ok {
		return 0, false, newError(n.Line, n.Column, "unsupported unary operator %s", n.Op)
	}
	xreg, xtemp, err := c.compileExpr(fs, n.X)
	if err != nil {
		return 0, false, err
	}
	dest := xreg
	if !xtemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
	}
	fs.emit(bytecode.Instr{Op: op, A: dest, B: xreg})
	return dest, true, nil
}

func (c *Compiler) compileTernary(fs *funcState, n *ast.Ternary) (byte, bool, error) {
	condReg, condTemp, err := c.compileExpr(fs, n.Cond)
	if err != nil {
		return 0, false, err
	}
	jzePC := fs.emit(bytecode.Instr{Op: bytecode.OpJze, A: condReg})
	dest := condReg
	if !condTemp {
		dest, err = fs.push()
		if err != nil {
			return 0, false, err
		}
	}

	thenReg, thenTemp, err := c.compileExpr(fs, n.Then)
	if err != nil {
		return 0, false, err
	}
	if thenReg != dest {
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: dest, B: thenReg})
	}
	if thenTemp && thenReg != dest {
		fs.pop()
	}
	jmpEndPC := fs.emit(bytecode.Instr{Op: bytecode.OpJmp})

	fs.patchJump(jzePC, fs.here())
	elseReg, elseTemp, err := c.compileExpr(fs, n.Else)
	if err != nil {
		return 0, false, err
	}
	if elseReg != dest {
		fs.emit(bytecode.Instr{Op: bytecode.OpMov, A: dest, B: elseReg})
	}
	if elseTemp && elseReg != dest {
		fs.pop()
	}
	fs.patchJump(jmpEndPC, fs.here())
	return dest, true, nil
}

func (c *Compiler) compileFuncLitExpr(fs *funcState, lit *ast.FuncLit) (byte, bool, error) {
	nested, err := c.compileFuncBody(fs, lit)
	if err != nil {
		return 0, false, err
	}
	symIdx := c.addFuncDef(lit.Name, nested.proto)
	dest, err := fs.push()
	if err != nil {
		return 0, false, err
	}
	fs.emit(bytecode.Instr{Op: bytecode.OpLdSym, A: dest, SymIdx: symIdx})
	if len(nested.upvals) > 0 {
		fs.emit(bytecode.Instr{Op: bytecode.OpClosure, A: dest, Upvals: nested.upvals})
	}
	return dest, true, nil
}
