package query

import (
	"errors"
	"testing"

	customError "github.com/segyhp/fleet-charges/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}
	return items
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		pageSize   int
		pageNumber int
		items      []int
		totalPages int
		startIndex int
		endIndex   int
	}{
		{
			name:       "first of two pages",
			total:      101,
			pageSize:   100,
			pageNumber: 1,
			items:      numbers(100),
			totalPages: 2,
			startIndex: 1,
			endIndex:   100,
		},
		{
			name:       "last page holds the remainder",
			total:      101,
			pageSize:   100,
			pageNumber: 2,
			items:      []int{101},
			totalPages: 2,
			startIndex: 101,
			endIndex:   101,
		},
		{
			name:       "exact multiple",
			total:      20,
			pageSize:   10,
			pageNumber: 2,
			items:      []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			totalPages: 2,
			startIndex: 11,
			endIndex:   20,
		},
		{
			name:       "empty set still has one page",
			total:      0,
			pageSize:   100,
			pageNumber: 1,
			items:      []int{},
			totalPages: 1,
			startIndex: 0,
			endIndex:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Paginate(numbers(tt.total), tt.pageSize, tt.pageNumber)

			require.NoError(t, err)
			assert.Equal(t, tt.items, page.Items)
			assert.Equal(t, tt.total, page.TotalItems)
			assert.Equal(t, tt.totalPages, page.TotalPages)
			assert.Equal(t, tt.startIndex, page.StartIndex)
			assert.Equal(t, tt.endIndex, page.EndIndex)
		})
	}
}

func TestPaginate_OutOfRange(t *testing.T) {
	page, err := Paginate(numbers(101), 100, 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrPageOutOfRange))

	var outOfRange *PageOutOfRangeError
	require.True(t, errors.As(err, &outOfRange))
	assert.Equal(t, 3, outOfRange.Requested)
	assert.Equal(t, 2, outOfRange.TotalPages)

	assert.Empty(t, page.Items)
	assert.Equal(t, 101, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)

	clamped, err := Paginate(numbers(101), 100, ClampPage(3, outOfRange.TotalPages))
	require.NoError(t, err)
	assert.Equal(t, []int{101}, clamped.Items)
}

func TestPaginate_AppendDoesNotTouchInput(t *testing.T) {
	items := []int{1, 2, 3}

	page, err := Paginate(items, 2, 1)
	require.NoError(t, err)

	_ = append(page.Items, 99)
	assert.Equal(t, []int{1, 2, 3}, items)
}

func TestPaginate_PageZero(t *testing.T) {
	_, err := Paginate(numbers(5), 10, 0)
	assert.True(t, errors.Is(err, customError.ErrPageOutOfRange))
}

func TestPaginate_InvalidPageSize(t *testing.T) {
	_, err := Paginate(numbers(5), 0, 1)
	assert.ErrorIs(t, err, customError.ErrInvalidPageSize)
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 2, ClampPage(3, 2))
	assert.Equal(t, 1, ClampPage(0, 2))
	assert.Equal(t, 1, ClampPage(-4, 2))
	assert.Equal(t, 2, ClampPage(2, 2))
	assert.Equal(t, 1, ClampPage(5, 0))
}
