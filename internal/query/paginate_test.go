package query

import (
	"fmt"
	"math"
	"testing"
)

func makeRecords(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{"id": fmt.Sprintf("r%02d", i)}
	}
	return out
}

func TestNormalizePage(t *testing.T) {
	for _, tc := range []struct {
		page, perPage, max     int
		wantPage, wantPerPage int
	}{
		{0, 0, 0, 1, 10},
		{-3, 5, 0, 1, 5},
		{2, 500, 100, 2, 100},
		{2, Unbounded, 0, 2, Unbounded},
	} {
		p, pp := NormalizePage(tc.page, tc.perPage, tc.max)
		if p != tc.wantPage || pp != tc.wantPerPage {
			t.Errorf("NormalizePage(%d, %d, %d) = %d, %d; want %d, %d",
				tc.page, tc.perPage, tc.max, p, pp, tc.wantPage, tc.wantPerPage)
		}
	}
}

func TestPaginate(t *testing.T) {
	records := makeRecords(5)
	for _, tc := range []struct {
		page, perPage int
		want          []string
	}{
		{1, 2, []string{"r00", "r01"}},
		{3, 2, []string{"r04"}},
		{4, 2, []string{}},
		{99, 10, []string{}},
		{1, Unbounded, []string{"r00", "r01", "r02", "r03", "r04"}},
		{2, Unbounded, []string{}},
	} {
		got := Paginate(records, tc.page, tc.perPage)
		if got == nil {
			t.Fatalf("Paginate(%d, %d) returned nil", tc.page, tc.perPage)
		}
		if !equalIDs(ids(got), tc.want) {
			t.Errorf("Paginate(%d, %d) = %v, want %v", tc.page, tc.perPage, ids(got), tc.want)
		}
	}
	if got := Paginate(nil, 1, 10); got == nil || len(got) != 0 {
		t.Fatalf("Paginate(nil) = %v, want empty slice", got)
	}
}

func TestPaginate_PartitionsInput(t *testing.T) {
	for _, n := range []int{0, 1, 7, 10, 23} {
		records := makeRecords(n)
		for _, perPage := range []int{1, 3, 10} {
			var joined []string
			for page := 1; page <= TotalPages(n, perPage); page++ {
				got := Paginate(records, page, perPage)
				if len(got) > perPage {
					t.Fatalf("page %d has %d records, perPage %d", page, len(got), perPage)
				}
				joined = append(joined, ids(got)...)
			}
			if !equalIDs(joined, ids(records)) {
				t.Fatalf("n=%d perPage=%d: pages joined = %v", n, perPage, joined)
			}
		}
	}
}

func TestOffset(t *testing.T) {
	for _, tc := range []struct {
		page, perPage, want int
	}{
		{1, 10, 0},
		{3, 10, 20},
		{0, 0, 0},
		{1 << 62, 10, math.MaxInt},
		{1<<62 + 1, 10, math.MaxInt},
		{math.MaxInt, Unbounded, math.MaxInt},
	} {
		if got := Offset(tc.page, tc.perPage); got != tc.want {
			t.Errorf("Offset(%d, %d) = %d, want %d", tc.page, tc.perPage, got, tc.want)
		}
	}
}
