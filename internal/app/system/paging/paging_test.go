package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Page
	}{
		{"defaults", "", Page{Start: 1, Limit: PageSize}},
		{"explicit", "?start=51&limit=25", Page{Start: 51, Limit: 25}},
		{"negative start", "?start=-3", Page{Start: 1, Limit: PageSize}},
		{"junk", "?start=abc&limit=xyz", Page{Start: 1, Limit: PageSize}},
		{"zero limit", "?limit=0", Page{Start: 1, Limit: PageSize}},
		{"limit clamped", "?limit=10000", Page{Start: 1, Limit: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/"+tt.query, nil)
			if got := Parse(r); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestPageOffsets(t *testing.T) {
	p := Page{Start: 11, Limit: 10}
	if p.Offset() != 10 {
		t.Errorf("Offset() = %d, want 10", p.Offset())
	}
	if p.LimitPlusOne() != 11 {
		t.Errorf("LimitPlusOne() = %d, want 11", p.LimitPlusOne())
	}
}

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		page     Page
		wantLen  int
		wantPrev bool
		wantNext bool
	}{
		{"first page, short", 3, Page{Start: 1, Limit: 10}, 3, false, false},
		{"first page, exact", 10, Page{Start: 1, Limit: 10}, 10, false, false},
		{"first page, extra", 11, Page{Start: 1, Limit: 10}, 10, false, true},
		{"middle page", 11, Page{Start: 11, Limit: 10}, 10, true, true},
		{"last page", 4, Page{Start: 21, Limit: 10}, 4, true, false},
		{"empty", 0, Page{Start: 1, Limit: 10}, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]int, tt.rows)
			res := TrimPage(&rows, tt.page)
			if len(rows) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(rows), tt.wantLen)
			}
			if res.HasPrev != tt.wantPrev || res.HasNext != tt.wantNext {
				t.Errorf("result = %+v, want prev=%v next=%v", res, tt.wantPrev, tt.wantNext)
			}
		})
	}
}

func TestComputeRange(t *testing.T) {
	tests := []struct {
		name  string
		page  Page
		shown int
		want  Range
	}{
		{"no results", Page{Start: 1, Limit: 50}, 0, Range{PrevStart: 1, NextStart: 1}},
		{"first page", Page{Start: 1, Limit: 50}, 50, Range{Start: 1, End: 50, PrevStart: 1, NextStart: 51}},
		{"second page", Page{Start: 51, Limit: 50}, 20, Range{Start: 51, End: 70, PrevStart: 1, NextStart: 71}},
		{"third page", Page{Start: 101, Limit: 50}, 50, Range{Start: 101, End: 150, PrevStart: 51, NextStart: 151}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeRange(tt.page, tt.shown); got != tt.want {
				t.Errorf("ComputeRange = %+v, want %+v", got, tt.want)
			}
		})
	}
}
