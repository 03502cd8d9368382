package vm

import (
	"fmt"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
	"github.com/sparkling-lang/sparkling/pkg/value"
)

// execArith implements spec.md §4.4's arithmetic type rule: integer if
// both operands are integer, float otherwise.
func execArith(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return value.Nil, fmt.Errorf("arithmetic on non-number operands (%s, %s)", value.TypeName(a), value.TypeName(b))
	}
	bothInt := a.IsInt() && b.IsInt()
	switch op {
	case bytecode.OpAdd:
		if bothInt {
			return value.Int(a.AsInt() + b.AsInt()), nil
		}
		return value.Float(a.AsFloat() + b.AsFloat()), nil
	case bytecode.OpSub:
		if bothInt {
			return value.Int(a.AsInt() - b.AsInt()), nil
		}
		return value.Float(a.AsFloat() - b.AsFloat()), nil
	case bytecode.OpMul:
		if bothInt {
			return value.Int(a.AsInt() * b.AsInt()), nil
		}
		return value.Float(a.AsFloat() * b.AsFloat()), nil
	case bytecode.OpDiv:
		if bothInt {
			if b.AsInt() == 0 {
				return value.Nil, fmt.Errorf("division by zero")
			}
			return value.Int(a.AsInt() / b.AsInt()), nil
		}
		return value.Float(a.AsFloat() / b.AsFloat()), nil
	case bytecode.OpMod:
		if !bothInt {
			return value.Nil, fmt.Errorf("modulo requires integer operands")
		}
		if b.AsInt() == 0 {
			return value.Nil, fmt.Errorf("division by zero")
		}
		return value.Int(a.AsInt() % b.AsInt()), nil
	default:
		return value.Nil, fmt.Errorf("not an arithmetic opcode: %s", op)
	}
}

func execCompare(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	if op == bytecode.OpEq {
		return value.Bool(value.Equal(a, b)), nil
	}
	if op == bytecode.OpNe {
		return value.Bool(!value.Equal(a, b)), nil
	}
	cmp, ok := value.Compare(a, b)
	if !ok {
		return value.Nil, fmt.Errorf("cannot compare %s and %s", value.TypeName(a), value.TypeName(b))
	}
	switch op {
	case bytecode.OpLt:
		return value.Bool(cmp < 0), nil
	case bytecode.OpLe:
		return value.Bool(cmp <= 0), nil
	case bytecode.OpGt:
		return value.Bool(cmp > 0), nil
	case bytecode.OpGe:
		return value.Bool(cmp >= 0), nil
	default:
		return value.Nil, fmt.Errorf("not a comparison opcode: %s", op)
	}
}

func execBitwise(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	if !a.IsInt() || !b.IsInt() {
		return value.Nil, fmt.Errorf("bitwise operator requires integer operands")
	}
	ai, bi := a.AsInt(), b.AsInt()
	switch op {
	case bytecode.OpAnd:
		return value.Int(ai & bi), nil
	case bytecode.OpOr:
		return value.Int(ai | bi), nil
	case bytecode.OpXor:
		return value.Int(ai ^ bi), nil
	case bytecode.OpShl:
		return value.Int(ai << uint(bi)), nil
	case bytecode.OpShr:
		return value.Int(ai >> uint(bi)), nil
	default:
		return value.Nil, fmt.Errorf("not a bitwise opcode: %s", op)
	}
}

func execUnary(op bytecode.Opcode, x value.Value) (value.Value, error) {
	switch op {
	case bytecode.OpNeg:
		if !x.IsNumber() {
			return value.Nil, fmt.Errorf("unary - requires a number, got %s", value.TypeName(x))
		}
		if x.IsInt() {
			return value.Int(-x.AsInt()), nil
		}
		return value.Float(-x.AsFloat()), nil
	case bytecode.OpBitNot:
		if !x.IsInt() {
			return value.Nil, fmt.Errorf("unary ~ requires an integer, got %s", value.TypeName(x))
		}
		return value.Int(^x.AsInt()), nil
	case bytecode.OpLogNot:
		return value.Bool(!x.Truthy()), nil
	case bytecode.OpTypeof:
		return value.FromObject(value.KString, value.NewString(value.TypeName(x))), nil
	default:
		return value.Nil, fmt.Errorf("not a unary opcode: %s", op)
	}
}

// execSizeof implements the supplemented sizeof operator: array and
// hashmap length, string byte length, 1 for anything else.
func execSizeof(x value.Value) (value.Value, error) {
	switch {
	case x.IsArray():
		return value.Int(int64(x.Object().(*value.Array).Len())), nil
	case x.IsHashMap():
		return value.Int(int64(x.Object().(*value.HashMap).Len())), nil
	case x.IsString():
		return value.Int(int64(x.Object().(*value.String).Len())), nil
	default:
		return value.Int(1), nil
	}
}

func execIncDec(op bytecode.Opcode, x value.Value) (value.Value, error) {
	if !x.IsNumber() {
		return value.Nil, fmt.Errorf("++/-- requires a number, got %s", value.TypeName(x))
	}
	delta := int64(1)
	if op == bytecode.OpDec {
		delta = -1
	}
	if x.IsInt() {
		return value.Int(x.AsInt() + delta), nil
	}
	return value.Float(x.AsFloat() + float64(delta)), nil
}

// concatValues implements CONCAT: spec.md §4.4 requires both operands
// to already be strings (no implicit coercion).
func concatValues(a, b value.Value) (value.Value, error) {
	if !a.IsString() || !b.IsString() {
		return value.Nil, fmt.Errorf("concat requires two strings, got %s and %s", value.TypeName(a), value.TypeName(b))
	}
	as, bs := a.Object().(*value.String), b.Object().(*value.String)
	joined := make([]byte, 0, as.Len()+bs.Len())
	joined = append(joined, as.Bytes()...)
	joined = append(joined, bs.Bytes()...)
	return value.FromObject(value.KString, value.NewStringBytes(joined)), nil
}

func arrayOf(v value.Value) (*value.Array, bool) {
	if !v.IsArray() {
		return nil, false
	}
	return v.Object().(*value.Array), true
}

func hashMapOf(v value.Value) (*value.HashMap, bool) {
	if !v.IsHashMap() {
		return nil, false
	}
	return v.Object().(*value.HashMap), true
}

// indexGet implements IDX_GET's type-directed branch: string
// subscripting returns the byte at a possibly negative index as an
// integer; array subscripting takes an integer; hashmap subscripting
// takes any non-nil key.
func indexGet(base, key value.Value) (value.Value, error) {
	switch {
	case base.IsString():
		if !key.IsNumber() {
			return value.Nil, fmt.Errorf("string subscript requires an integer index")
		}
		b, ok := base.Object().(*value.String).ByteAt(key.AsInt())
		if !ok {
			return value.Nil, fmt.Errorf("string index out of bounds")
		}
		return value.Int(int64(b)), nil
	case base.IsArray():
		if !key.IsNumber() {
			return value.Nil, fmt.Errorf("array subscript requires an integer index")
		}
		v := base.Object().(*value.Array).Get(key.AsInt())
		if v.IsObject() {
			value.Retain(v)
		}
		return v, nil
	case base.IsHashMap():
		if key.IsNil() {
			return value.Nil, fmt.Errorf("hashmap key must not be nil")
		}
		v := base.Object().(*value.HashMap).Get(key)
		if v.IsObject() {
			value.Retain(v)
		}
		return v, nil
	default:
		return value.Nil, fmt.Errorf("cannot subscript a %s value", value.TypeName(base))
	}
}

// indexSet implements IDX_SET, mirroring indexGet's type dispatch.
// Storing into the container retains the value being stored: the
// register it came from keeps its own independent reference.
func indexSet(base, key, val value.Value) error {
	switch {
	case base.IsArray():
		if !key.IsNumber() {
			return fmt.Errorf("array subscript requires an integer index")
		}
		if val.IsObject() {
			value.Retain(val)
		}
		if !base.Object().(*value.Array).Set(key.AsInt(), val) {
			return fmt.Errorf("array index out of bounds")
		}
		return nil
	case base.IsHashMap():
		if key.IsNil() {
			return fmt.Errorf("hashmap key must not be nil")
		}
		if val.IsObject() {
			value.Retain(val)
		}
		key2 := key
		if key2.IsObject() {
			value.Retain(key2)
		}
		base.Object().(*value.HashMap).Set(key2, val)
		return nil
	default:
		return fmt.Errorf("cannot subscript-assign a %s value", value.TypeName(base))
	}
}
