package vm

import (
	"fmt"

	"github.com/sparkling-lang/sparkling/pkg/value"
)

// classSlotStr backs the "__class__" key every method-dispatching
// object carries, shared across lookups; HashMap.Get compares keys by
// content, not identity, so reusing one instance across calls is safe
// and avoids allocating a fresh string per property access.
var classSlotStr = value.NewString("__class__")

func classSlotKey() value.Value { return value.FromObject(value.KString, classSlotStr) }

// propGet and propSet implement PROPGET/PROPSET against the
// supplemented "classes" object model (SPEC_FULL.md's additive
// feature): an object is a hashmap, and a property is simply one of
// its own keys. A missing property reads as nil, matching the
// language's hashmap-subscript miss behavior.
func propGet(base, name value.Value) (value.Value, error) {
	obj, ok := hashMapOf(base)
	if !ok {
		return value.Nil, fmt.Errorf("cannot read a property of a %s value", value.TypeName(base))
	}
	if !name.IsString() {
		return value.Nil, fmt.Errorf("property name must be a string")
	}
	v := obj.Get(name)
	if v.IsObject() {
		value.Retain(v)
	}
	return v, nil
}

func propSet(base, name, val value.Value) error {
	obj, ok := hashMapOf(base)
	if !ok {
		return fmt.Errorf("cannot set a property of a %s value", value.TypeName(base))
	}
	if !name.IsString() {
		return fmt.Errorf("property name must be a string")
	}
	if val.IsObject() {
		value.Retain(val)
	}
	nameKey := name
	if nameKey.IsObject() {
		value.Retain(nameKey)
	}
	obj.Set(nameKey, val)
	return nil
}

// methodLookup implements METHOD: resolving name against the class
// registered under obj's "__class__" slot, rather than against the
// object's own keys the way PROPGET does.
func (vm *VM) methodLookup(obj, name value.Value) (value.Value, error) {
	o, ok := hashMapOf(obj)
	if !ok {
		return value.Nil, fmt.Errorf("cannot dispatch a method on a %s value", value.TypeName(obj))
	}
	if !name.IsString() {
		return value.Nil, fmt.Errorf("method name must be a string")
	}
	classVal := o.Get(classSlotKey())
	if !classVal.IsString() {
		return value.Nil, fmt.Errorf("object has no __class__")
	}
	className := classVal.Object().(*value.String).String()
	methods, ok := vm.classes[className]
	if !ok {
		return value.Nil, fmt.Errorf("no such class %q", className)
	}
	fn := methods.Get(name)
	if !fn.IsFunction() {
		nameStr := name.Object().(*value.String).String()
		return value.Nil, fmt.Errorf("class %q has no method %q", className, nameStr)
	}
	value.Retain(fn)
	return fn, nil
}
