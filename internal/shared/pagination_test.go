package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageMetadata(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 0, 2, 5)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.First)
	assert.False(t, p.Last)
	assert.False(t, p.Empty)
	assert.Equal(t, 2, p.NumberOfElements)
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrevious())

	last := NewPage([]string{"e"}, 2, 2, 5)
	assert.True(t, last.Last)
	assert.False(t, last.HasNext())
}

func TestNewPageEmpty(t *testing.T) {
	p := NewPage[int](nil, 0, 10, 0)
	assert.NotNil(t, p.Content)
	assert.True(t, p.Empty)
	assert.True(t, p.First)
	assert.True(t, p.Last)
	assert.Zero(t, p.TotalPages)

	beyond := NewPage[int](nil, 7, 10, 15)
	assert.True(t, beyond.Empty)
	assert.True(t, beyond.Last)
}

func TestPageWindow(t *testing.T) {
	p := NewPage([]int{1}, 5, 1, 10)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, p.Pages(5))

	start := NewPage([]int{1}, 0, 1, 10)
	assert.Equal(t, []int{0, 1, 2}, start.Pages(3))

	end := NewPage([]int{1}, 9, 1, 10)
	assert.Equal(t, []int{7, 8, 9}, end.Pages(3))

	assert.Nil(t, NewPage[int](nil, 0, 1, 0).Pages(5))
}
