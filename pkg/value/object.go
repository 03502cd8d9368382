package value

import "sync/atomic"

// Object is implemented by every heap-allocated reference counted
// value kind (String, Array, HashMap, Function).
type Object interface {
	Class() *Class
	Retain()
	Release()
	RefCount() int32
}

// Class is a heap object's class descriptor: its optional equality,
// hash, and destroy hooks. Two objects are equal iff their Class
// pointers are identical and Equal (or identity, if Equal is nil)
// agrees.
type Class struct {
	Name    string
	Equal   func(a, b Object) bool
	Hash    func(o Object) uint64
	Destroy func(o Object)
}

// RC is the embeddable reference-count base every heap object type
// composes. retain/release are its only mutators; destroy runs exactly
// once, when the count transitions from 1 to 0.
type RC struct {
	refs  int32
	class *Class
}

// InitRC initializes an RC with refcount 1, as every constructor must.
func InitRC(class *Class) RC {
	liveObjects.Add(1)
	return RC{refs: 1, class: class}
}

func (r *RC) Class() *Class { return r.class }

func (r *RC) RefCount() int32 { return atomic.LoadInt32(&r.refs) }

func (r *RC) Retain() { atomic.AddInt32(&r.refs, 1) }

// Release decrements the count and, on transition to zero, invokes the
// class destructor (if any) on self, the concrete object embedding this
// RC, since Destroy(o Object) needs it to release owned sub-values.
func (r *RC) Release(self Object) {
	if atomic.AddInt32(&r.refs, -1) == 0 {
		liveObjects.Add(-1)
		if r.class != nil && r.class.Destroy != nil {
			r.class.Destroy(self)
		}
	}
}

// liveObjects is a debug-mode counter of currently-live heap objects,
// exposed for the reference-counting property in the test suite: for a
// program that creates and releases N objects, the live count at the
// end must equal the count before the program started.
var liveObjects atomic.Int64

// LiveObjectCount returns the number of heap objects currently alive
// across the whole process. It is a debugging aid, not used by any
// execution-path logic.
func LiveObjectCount() int64 { return liveObjects.Load() }
