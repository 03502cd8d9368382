package value

// arrayClass is shared across every Array. Equal compares length and
// elementwise Equal; Hash combines the element hashes in order, so
// arrays that compare Equal hash identically (arrays are mutable, so no
// content hash is cached).
var arrayClass = &Class{
	Name: "array",
	Hash: func(o Object) uint64 {
		h := uint64(14695981039346656037)
		for _, e := range o.(*Array).elems {
			h = (h ^ Hash(e)) * 1099511628211
		}
		return h
	},
	Equal: func(a, b Object) bool {
		aa, bb := a.(*Array), b.(*Array)
		if len(aa.elems) != len(bb.elems) {
			return false
		}
		for i := range aa.elems {
			if !Equal(aa.elems[i], bb.elems[i]) {
				return false
			}
		}
		return true
	},
	Destroy: func(o Object) {
		a := o.(*Array)
		for _, e := range a.elems {
			Release(e)
		}
		a.elems = nil
	},
}

// Array is a dynamic, zero-indexed, heterogeneous sequence of Values.
// It owns one reference to each element it holds.
type Array struct {
	RC
	elems []Value
}

// NewArray allocates an empty Array at refcount 1.
func NewArray() *Array {
	return &Array{RC: InitRC(arrayClass)}
}

// NewArrayFrom allocates an Array taking ownership of elems (one
// reference per object element, already held by the caller).
func NewArrayFrom(elems []Value) *Array {
	return &Array{RC: InitRC(arrayClass), elems: elems}
}

func (a *Array) Release() { a.RC.Release(a) }

// Len returns the element count.
func (a *Array) Len() int { return len(a.elems) }

// Get implements the spec's subscript rule: a negative index counts
// back from the end; any out-of-range index (positive or negative)
// reads as nil rather than erroring.
func (a *Array) Get(idx int64) Value {
	i := a.resolve(idx)
	if i < 0 || i >= int64(len(a.elems)) {
		return Nil
	}
	return a.elems[i]
}

// Set writes idx, extending the array with Nil padding if idx is
// beyond the current length (negative indices never extend: they must
// already be in range). The value being overwritten, if any, is
// released; the new value is retained on the array's behalf by the
// caller (the VM transfers a reference in).
func (a *Array) Set(idx int64, v Value) bool {
	if idx < 0 {
		i := a.resolve(idx)
		if i < 0 || i >= int64(len(a.elems)) {
			return false
		}
		Release(a.elems[i])
		a.elems[i] = v
		return true
	}
	for int64(len(a.elems)) <= idx {
		a.elems = append(a.elems, Nil)
	}
	Release(a.elems[idx])
	a.elems[idx] = v
	return true
}

// Push appends v, taking ownership of the reference the caller holds.
func (a *Array) Push(v Value) {
	a.elems = append(a.elems, v)
}

// Elems exposes the backing slice for iteration; callers must not
// retain it past the array's lifetime.
func (a *Array) Elems() []Value { return a.elems }

func (a *Array) resolve(idx int64) int64 {
	if idx < 0 {
		return idx + int64(len(a.elems))
	}
	return idx
}
