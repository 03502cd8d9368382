package value

import "bytes"

// stringClass is the shared Class descriptor for every String. Equal is
// a byte-wise comparison; Hash lazily computes and caches an FNV-1a
// digest on first use (and is invalidated there is no mutation path:
// String is immutable, so caching is permanent).
var stringClass = &Class{
	Name: "string",
	Equal: func(a, b Object) bool {
		return bytes.Equal(a.(*String).data, b.(*String).data)
	},
	Hash: func(o Object) uint64 {
		return o.(*String).hashValue()
	},
}

// String is an immutable, binary-safe byte sequence: it may contain
// NULs and its length is tracked explicitly rather than via a
// terminator.
type String struct {
	RC
	data      []byte
	hash      uint64
	hashKnown bool
}

// NewString allocates a String owning a copy of s's bytes, at refcount
// 1.
func NewString(s string) *String {
	return &String{RC: InitRC(stringClass), data: []byte(s)}
}

// NewStringBytes is like NewString but takes ownership of b directly
// without copying (b must not be mutated afterward).
func NewStringBytes(b []byte) *String {
	return &String{RC: InitRC(stringClass), data: b}
}

func (s *String) Release() { s.RC.Release(s) }

// Bytes returns the string's raw byte content; callers must not mutate
// the returned slice.
func (s *String) Bytes() []byte { return s.data }

// Len returns the byte length.
func (s *String) Len() int { return len(s.data) }

// String implements fmt.Stringer for debug printing.
func (s *String) String() string { return string(s.data) }

// ByteAt implements the spec's "possibly negative index" subscript
// rule: a negative index counts back from the end. Out-of-range
// indices return (0, false).
func (s *String) ByteAt(idx int64) (byte, bool) {
	i := idx
	if i < 0 {
		i += int64(len(s.data))
	}
	if i < 0 || i >= int64(len(s.data)) {
		return 0, false
	}
	return s.data[i], true
}

// Compare orders two strings lexicographically by unsigned byte value.
func (s *String) Compare(other *String) int {
	return bytes.Compare(s.data, other.data)
}

func (s *String) hashValue() uint64 {
	if !s.hashKnown {
		s.hash = fnv1a(s.data)
		s.hashKnown = true
	}
	return s.hash
}

func fnv1a(data []byte) uint64 {
	var h uint64 = 14695981039346656037
	for _, b := range data {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}
