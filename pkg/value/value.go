// Package value implements Sparkling's runtime value model: a tagged
// union (Value) over nil, bool, integer, float, and four reference
// counted heap object kinds (string, array, hashmap, function).
//
// Every heap object funnels through one retain/release pair (this
// file's Retain/Release), so there is exactly one place that mutates a
// reference count — matching the discipline the language's object
// model hinges on: a count reaches zero exactly once, and the
// destructor for that object runs exactly once.
package value

import (
	"math"
	"reflect"
)

// Kind is the type tag carried by every Value.
type Kind byte

const (
	KNil Kind = iota
	KBool
	KNumber
	KString
	KArray
	KHashMap
	KFunction
	KUserInfo
)

func (k Kind) String() string {
	switch k {
	case KNil:
		return "nil"
	case KBool:
		return "bool"
	case KNumber:
		return "number"
	case KString:
		return "string"
	case KArray:
		return "array"
	case KHashMap:
		return "hashmap"
	case KFunction:
		return "function"
	case KUserInfo:
		return "userinfo"
	default:
		return "unknown"
	}
}

// Value is Sparkling's tagged union. Numbers carry an additional
// integer/float tag (IsInt); object-kind values hold an Object payload
// that owns a reference counted heap allocation.
type Value struct {
	kind Kind
	b    bool
	isInt bool
	i     int64
	f     float64
	obj   Object
	user  interface{} // weak-userinfo opaque pointer payload
}

// Nil is the canonical nil value.
var Nil = Value{kind: KNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KBool, b: b} }

// Int constructs an integer-tagged number.
func Int(i int64) Value { return Value{kind: KNumber, isInt: true, i: i} }

// Float constructs a floating-point-tagged number.
func Float(f float64) Value { return Value{kind: KNumber, isInt: false, f: f} }

// FromObject constructs a value wrapping a heap object of kind k. The
// caller is transferring one reference: the new Value does not retain
// it itself (constructors return objects already at refcount 1).
func FromObject(k Kind, obj Object) Value { return Value{kind: k, obj: obj} }

// WeakUserInfo wraps an arbitrary host pointer with no refcounting.
func WeakUserInfo(p interface{}) Value { return Value{kind: KUserInfo, user: p} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNil() bool  { return v.kind == KNil }
func (v Value) IsBool() bool { return v.kind == KBool }
func (v Value) IsNumber() bool { return v.kind == KNumber }
func (v Value) IsInt() bool  { return v.kind == KNumber && v.isInt }
func (v Value) IsFloat() bool { return v.kind == KNumber && !v.isInt }
func (v Value) IsString() bool { return v.kind == KString }
func (v Value) IsArray() bool  { return v.kind == KArray }
func (v Value) IsHashMap() bool { return v.kind == KHashMap }
func (v Value) IsFunction() bool { return v.kind == KFunction }
func (v Value) IsObject() bool {
	switch v.kind {
	case KString, KArray, KHashMap, KFunction:
		return true
	default:
		return false
	}
}

func (v Value) Bool() bool { return v.b }

// AsInt returns the value's integer payload, converting from float if
// necessary (truncating toward zero, matching Go's float64->int64
// conversion).
func (v Value) AsInt() int64 {
	if v.isInt {
		return v.i
	}
	return int64(v.f)
}

// AsFloat returns the value's float payload, converting from integer if
// necessary.
func (v Value) AsFloat() float64 {
	if v.isInt {
		return float64(v.i)
	}
	return v.f
}

// Object returns the heap object payload; callers must check one of the
// Is* predicates first.
func (v Value) Object() Object { return v.obj }

// UserInfo returns the opaque weak pointer payload.
func (v Value) UserInfo() interface{} { return v.user }

// Truthy implements Sparkling's condition-evaluation rule: nil and
// false are the only falsy values.
func (v Value) Truthy() bool {
	switch v.kind {
	case KNil:
		return false
	case KBool:
		return v.b
	default:
		return true
	}
}

// Retain increments a heap object's reference count. No-op for
// non-object values.
func Retain(v Value) {
	if v.IsObject() && v.obj != nil {
		v.obj.Retain()
	}
}

// Release decrements a heap object's reference count, destroying it at
// zero. No-op for non-object values. Calling Release on an object whose
// count is already zero is undefined, same as the spec's object model.
func Release(v Value) {
	if v.IsObject() && v.obj != nil {
		v.obj.Release()
	}
}

// Equal reports whether a and b compare equal. Numbers compare across
// the integer/float tag by coercing the integer operand to double;
// objects compare via their Class's Equal predicate (identity by
// default). Mismatched kinds (other than the two number kinds) are
// never equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KNil:
		return true
	case KBool:
		return a.b == b.b
	case KNumber:
		if a.isInt && b.isInt {
			return a.i == b.i
		}
		return a.AsFloat() == b.AsFloat()
	case KUserInfo:
		return a.user == b.user
	default:
		if a.obj == nil || b.obj == nil {
			return a.obj == b.obj
		}
		cls := a.obj.Class()
		if cls != b.obj.Class() {
			return false
		}
		if cls.Equal != nil {
			return cls.Equal(a.obj, b.obj)
		}
		return a.obj == b.obj
	}
}

// Hash computes a value's hash, used by HashMap. The invariant
// Equal(a,b) => Hash(a)==Hash(b) holds by construction: an int and a
// float that are numerically equal (and the float is exactly
// representable as an integer) hash identically.
func Hash(v Value) uint64 {
	switch v.kind {
	case KNil:
		return 0
	case KBool:
		if v.b {
			return 1
		}
		return 0
	case KNumber:
		if v.isInt {
			return uint64(v.i)
		}
		if f := v.f; f == math.Trunc(f) && !math.IsInf(f, 0) {
			return uint64(int64(f))
		}
		return math.Float64bits(v.f)
	case KUserInfo:
		return hashPointer(v.user)
	default:
		if v.obj == nil {
			return 0
		}
		cls := v.obj.Class()
		if cls.Hash != nil {
			return cls.Hash(v.obj)
		}
		return hashPointer(v.obj)
	}
}

// hashPointer hashes a value by its identity (address), the fallback
// the spec names for objects/userinfo without a class-supplied hash.
func hashPointer(p interface{}) uint64 {
	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return uint64(rv.Pointer())
	default:
		return 0
	}
}

// Compare orders two numbers or two strings; it is undefined (ok=false)
// for any other pair of kinds, matching spec.md's "compare fails for
// non-comparable types" rule — callers (the VM) turn that into a
// runtime error.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.kind == KNumber && b.kind == KNumber {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KString && b.kind == KString {
		as, bs := a.obj.(*String), b.obj.(*String)
		return as.Compare(bs), true
	}
	return 0, false
}

// TypeName returns the script-visible type name, as used by the
// TYPEOF opcode and runtime error messages.
func TypeName(v Value) string { return v.kind.String() }
