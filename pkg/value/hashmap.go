package value

// hashMapClass is shared across every HashMap. Equal compares bucket
// content (key/value pairs, order-independent); Hash sums a mix of each
// live entry's key and value hashes, so it is order-independent too and
// maps that compare Equal hash identically.
var hashMapClass = &Class{
	Name: "hashmap",
	Hash: func(o Object) uint64 {
		var h uint64
		for _, e := range o.(*HashMap).entries {
			if !e.deleted {
				h += Hash(e.key)*1099511628211 ^ Hash(e.val)
			}
		}
		return h
	},
	Equal: func(a, b Object) bool {
		ha, hb := a.(*HashMap), b.(*HashMap)
		if ha.count != hb.count {
			return false
		}
		for _, e := range ha.entries {
			if e.deleted {
				continue
			}
			v, ok := hb.lookup(e.key)
			if !ok || !Equal(e.val, v) {
				return false
			}
		}
		return true
	},
	Destroy: func(o Object) {
		h := o.(*HashMap)
		for _, e := range h.entries {
			if !e.deleted {
				Release(e.key)
				Release(e.val)
			}
		}
		h.entries = nil
		h.index = nil
	},
}

type hashEntry struct {
	key     Value
	val     Value
	deleted bool
}

// HashMap is an insertion-ordered associative map keyed by any
// non-nil Value. It is implemented as a chained hash table: index maps
// a bucket number to a list of entry slots, so iteration order matches
// insertion order (matching the spec's "iteration cursor" requirement,
// which needs a stable traversal order across mutation between steps).
type HashMap struct {
	RC
	entries []hashEntry
	index   map[uint64][]int
	count   int
}

// NewHashMap allocates an empty HashMap at refcount 1.
func NewHashMap() *HashMap {
	return &HashMap{RC: InitRC(hashMapClass), index: make(map[uint64][]int)}
}

func (h *HashMap) Release() { h.RC.Release(h) }

// Len returns the number of live (non-deleted) entries.
func (h *HashMap) Len() int { return h.count }

func (h *HashMap) lookup(key Value) (Value, bool) {
	idx, ok := h.slotOf(key)
	if !ok {
		return Nil, false
	}
	return h.entries[idx].val, true
}

func (h *HashMap) slotOf(key Value) (int, bool) {
	hv := Hash(key)
	for _, i := range h.index[hv] {
		e := &h.entries[i]
		if !e.deleted && Equal(e.key, key) {
			return i, true
		}
	}
	return 0, false
}

// Get looks up key; a missing key reads as nil, matching array
// subscript semantics.
func (h *HashMap) Get(key Value) Value {
	v, _ := h.lookup(key)
	return v
}

// Has reports whether key is present.
func (h *HashMap) Has(key Value) bool {
	_, ok := h.slotOf(key)
	return ok
}

// Set stores val under key, or — per the spec's "storing nil removes
// the key" rule — deletes the entry when val is Nil. key must not be
// Nil; callers (the VM) reject a nil key before calling Set.
func (h *HashMap) Set(key, val Value) {
	if val.IsNil() {
		h.Delete(key)
		return
	}
	if idx, ok := h.slotOf(key); ok {
		Release(h.entries[idx].val)
		h.entries[idx].val = val
		Release(key) // caller's key reference is not retained twice
		return
	}
	hv := Hash(key)
	idx := len(h.entries)
	h.entries = append(h.entries, hashEntry{key: key, val: val})
	h.index[hv] = append(h.index[hv], idx)
	h.count++
}

// Delete removes key if present, releasing both the stored key and
// value references.
func (h *HashMap) Delete(key Value) bool {
	idx, ok := h.slotOf(key)
	if !ok {
		return false
	}
	Release(h.entries[idx].key)
	Release(h.entries[idx].val)
	h.entries[idx].deleted = true
	h.count--
	return true
}

// Each iterates live entries in insertion order, stopping early if fn
// returns false.
func (h *HashMap) Each(fn func(key, val Value) bool) {
	for _, e := range h.entries {
		if e.deleted {
			continue
		}
		if !fn(e.key, e.val) {
			return
		}
	}
}
