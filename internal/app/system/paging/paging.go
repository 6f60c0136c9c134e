// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by paged lists.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 200

// Page is a parsed offset window. Start is 1-based.
type Page struct {
	Start int
	Limit int
}

// Offset is the number of rows to skip.
func (p Page) Offset() int64 { return int64(p.Start - 1) }

// LimitPlusOne is the fetch size for look-ahead pagination: one extra row
// tells whether a next page exists.
func (p Page) LimitPlusOne() int64 { return int64(p.Limit + 1) }

// Parse reads "start" (1-based) and "limit" from the query string.
func Parse(r *http.Request) Page {
	return Page{Start: ParseStart(r), Limit: ParseLimit(r)}
}

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseLimit extracts "limit", defaulting to PageSize and clamped to
// MaxPageSize.
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Result holds the navigation flags for a trimmed page.
type Result struct {
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// TrimPage trims rows fetched with LimitPlusOne back to the page size and
// reports whether neighbouring pages exist.
func TrimPage[T any](rows *[]T, p Page) Result {
	res := Result{HasPrev: p.Start > 1}
	if len(*rows) > p.Limit {
		*rows = (*rows)[:p.Limit]
		res.HasNext = true
	}
	return res
}

// Range holds computed display range values for a paginated list.
type Range struct {
	Start     int `json:"start"`      // 1-based start index (0 if no results)
	End       int `json:"end"`        // 1-based end index (0 if no results)
	PrevStart int `json:"prev_start"` // start value for previous page link
	NextStart int `json:"next_start"` // start value for next page link
}

// ComputeRange calculates display range values given the page and number
// of items shown.
func ComputeRange(p Page, shown int) Range {
	if shown == 0 {
		return Range{Start: 0, End: 0, PrevStart: 1, NextStart: 1}
	}

	prevStart := p.Start - p.Limit
	if prevStart < 1 {
		prevStart = 1
	}

	return Range{
		Start:     p.Start,
		End:       p.Start + shown - 1,
		PrevStart: prevStart,
		NextStart: p.Start + shown,
	}
}
