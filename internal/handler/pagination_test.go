package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// window renders slots as ints with 0 for an ellipsis.
func window(slots []PageSlot) []int {
	out := make([]int, len(slots))
	for i, s := range slots {
		if !s.Ellipsis {
			out[i] = s.Number
		}
	}
	return out
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name           string
		current, total int
		want           []int
	}{
		{"single page", 1, 1, []int{1}},
		{"all fit", 3, 5, []int{1, 2, 3, 4, 5}},
		{"first page", 1, 10, []int{1, 2, 3, 4, 0, 10}},
		{"third page", 3, 10, []int{1, 2, 3, 4, 0, 10}},
		{"middle", 5, 10, []int{1, 0, 4, 5, 6, 0, 10}},
		{"near end", 8, 10, []int{1, 0, 7, 8, 9, 10}},
		{"last page", 10, 10, []int{1, 0, 7, 8, 9, 10}},
		{"six pages, page four", 4, 6, []int{1, 0, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, window(pageWindow(tt.current, tt.total)))
		})
	}
}

func TestPageWindow_MarksCurrent(t *testing.T) {
	for _, s := range pageWindow(5, 10) {
		assert.Equal(t, s.Number == 5, s.Current)
	}
}

func TestPaginate(t *testing.T) {
	p := paginate(23, 3)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 21, p.Start)
	assert.Equal(t, 23, p.End)
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())

	p = paginate(23, 99)
	assert.Equal(t, 3, p.Page)

	p = paginate(0, 1)
	assert.Equal(t, 1, p.TotalPages)
	assert.Zero(t, p.Start)
	assert.Zero(t, p.End)
	assert.Nil(t, pageItems([]int{}, p))
}

func TestPageItems(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i + 1
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, pageItems(items, paginate(23, 1)))
	assert.Equal(t, []int{21, 22, 23}, pageItems(items, paginate(23, 3)))
}

func TestPageParam(t *testing.T) {
	assert.Equal(t, 1, pageParam(httptest.NewRequest("GET", "/x", nil)))
	assert.Equal(t, 4, pageParam(httptest.NewRequest("GET", "/x?page=4", nil)))
	assert.Equal(t, 1, pageParam(httptest.NewRequest("GET", "/x?page=-2", nil)))
	assert.Equal(t, 1, pageParam(httptest.NewRequest("GET", "/x?page=abc", nil)))
}
