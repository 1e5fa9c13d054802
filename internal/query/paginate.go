package query

import "math"

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// Unbounded is the page size exports use to receive every record.
const Unbounded = math.MaxInt32

// NormalizePage applies defaults: page is at least 1, perPage defaults to
// DefaultPerPage and is capped at max when max > 0.
func NormalizePage(page, perPage, max int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if max > 0 && perPage > max {
		perPage = max
	}
	return page, perPage
}

// Paginate returns records[(page-1)*perPage : page*perPage], clipped to the
// input. A page past the end yields an empty, non-nil slice.
func Paginate(records []Record, page, perPage int) []Record {
	page, perPage = NormalizePage(page, perPage, 0)
	n := len(records)
	if page > TotalPages(n, perPage) {
		return []Record{}
	}
	start := (page - 1) * perPage
	end := start + min(perPage, n-start)
	return records[start:end]
}

// Offset is the index of the first record on page. Pages too large to
// address saturate at math.MaxInt, which no store can reach.
func Offset(page, perPage int) int {
	page, perPage = NormalizePage(page, perPage, 0)
	if page-1 > (math.MaxInt-perPage)/perPage {
		return math.MaxInt
	}
	return (page - 1) * perPage
}

// TotalPages is ceil(total/perPage).
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return pages
}
