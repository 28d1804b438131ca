package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ZeroValuedWithDeclaredShape(t *testing.T) {
	b := New([]int{2, 3})
	assert.Equal(t, []int{2, 3}, b.Dims())
	assert.Equal(t, 6, b.Len())
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, 0.0, b.Get(i))
	}
	assert.Equal(t, int32(1), b.RefCount())
}

func TestBuffer_DimsReturnsACopy(t *testing.T) {
	b := New([]int{4})
	dims := b.Dims()
	dims[0] = 99
	assert.Equal(t, []int{4}, b.Dims())
}

func TestBuffer_FillWithValue(t *testing.T) {
	b := New([]int{3})
	b.FillWithValue(7.5)
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, 7.5, b.Get(i))
	}
}

func TestBuffer_SetGet(t *testing.T) {
	b := New([]int{2})
	b.Set(0, 1.0)
	b.Set(1, 2.0)
	assert.Equal(t, 1.0, b.Get(0))
	assert.Equal(t, 2.0, b.Get(1))
}

func TestBuffer_RetainReleaseRefCounting(t *testing.T) {
	b := New([]int{1})
	b.Retain()
	b.Retain()
	assert.Equal(t, int32(3), b.RefCount())

	assert.False(t, b.Release())
	assert.False(t, b.Release())
	assert.True(t, b.Release())
	assert.Equal(t, int32(0), b.RefCount())
}
