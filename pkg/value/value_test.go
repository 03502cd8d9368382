package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkling-lang/sparkling/pkg/value"
)

func TestRefcountRoundTripsToZeroObjectsCreated(t *testing.T) {
	before := value.LiveObjectCount()

	s1 := value.NewString("hello")
	s2 := value.NewString("hello")
	arr := value.NewArray()
	arr.Push(value.FromObject(value.KString, s1))
	value.Retain(value.FromObject(value.KString, s2))

	arrVal := value.FromObject(value.KArray, arr)
	value.Release(arrVal)
	value.Release(value.FromObject(value.KString, s2))
	// Drop the reference s2 was created with.
	value.Release(value.FromObject(value.KString, s2))

	assert.Equal(t, before, value.LiveObjectCount())
}

func TestEqualImpliesSameHash(t *testing.T) {
	a := value.FromObject(value.KString, value.NewString("matching"))
	b := value.FromObject(value.KString, value.NewString("matching"))

	require.True(t, value.Equal(a, b))
	assert.Equal(t, value.Hash(a), value.Hash(b))
}

func TestArithmeticValueConstructors(t *testing.T) {
	i := value.Int(42)
	f := value.Float(3.5)

	assert.True(t, i.IsInt())
	assert.Equal(t, int64(42), i.AsInt())
	assert.True(t, f.IsFloat())
	assert.Equal(t, 3.5, f.AsFloat())
}

func TestStringByteAtSupportsNegativeIndex(t *testing.T) {
	s := value.NewString("abc")
	b, ok := s.ByteAt(-1)
	require.True(t, ok)
	assert.Equal(t, byte('c'), b)
}
