package query

import (
	"fmt"

	customError "github.com/segyhp/fleet-charges/pkg/errors"
)

// Page is one fixed-size slice of an ordered result set.
// StartIndex and EndIndex are 1-based and inclusive, both 0 for an empty set.
type Page[T any] struct {
	Items      []T
	PageNumber int
	PageSize   int
	TotalItems int
	TotalPages int
	StartIndex int
	EndIndex   int
}

// PageOutOfRangeError tells the caller to clamp its page number to TotalPages.
type PageOutOfRangeError struct {
	Requested  int
	TotalPages int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (total pages: %d)", e.Requested, e.TotalPages)
}

func (e *PageOutOfRangeError) Is(target error) bool {
	return target == customError.ErrPageOutOfRange
}

// Paginate slices items into page pageNumber of size pageSize. It never adjusts
// pageNumber itself: a page past the end (or below 1) returns the totals with
// no items and a *PageOutOfRangeError.
func Paginate[T any](items []T, pageSize, pageNumber int) (Page[T], error) {
	if pageSize <= 0 {
		return Page[T]{}, customError.ErrInvalidPageSize
	}

	total := len(items)
	totalPages := max(1, (total+pageSize-1)/pageSize)

	page := Page[T]{
		Items:      []T{},
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}

	if pageNumber < 1 || pageNumber > totalPages {
		return page, &PageOutOfRangeError{Requested: pageNumber, TotalPages: totalPages}
	}
	if total == 0 {
		return page, nil
	}

	start := (pageNumber - 1) * pageSize
	end := min(start+pageSize, total)

	// Full slice expression: appending to Items must not write into items
	page.Items = items[start:end:end]
	page.StartIndex = start + 1
	page.EndIndex = end
	return page, nil
}

// ClampPage brings pageNumber into [1, totalPages].
func ClampPage(pageNumber, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	return min(max(pageNumber, 1), totalPages)
}
