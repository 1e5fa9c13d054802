package query

import "sort"

// FilterRecords keeps the records that pass every residual predicate. The
// input slice is not modified.
func FilterRecords(records []Record, residual []Predicate) []Record {
	if len(residual) == 0 {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if And(residual).Match(r.Get) {
			out = append(out, r)
		}
	}
	return out
}

// SortRecords orders records in place by one key with a stable sort, so
// records comparing equal keep their incoming (native) order.
func SortRecords(records []Record, key SortKey, kind ValueKind) {
	sort.SliceStable(records, func(i, j int) bool {
		c := compareValues(records[i][key.Key], records[j][key.Key], kind)
		if key.Desc {
			return c > 0
		}
		return c < 0
	})
}
