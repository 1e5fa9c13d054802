package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one projected row: every catalog key mapped to a string,
// float64, bool, time.Time or nil. Records are not modified after projection.
type Record map[string]any

// Get returns the value of key, nil when absent.
func (r Record) Get(key string) any {
	return r[key]
}

// String returns the value of key formatted as a string ("" when nil).
func (r Record) String(key string) string {
	v := r[key]
	if v == nil {
		return ""
	}
	return toString(v)
}

// Compare orders two values of the given kind: strings case-insensitively,
// dates by epoch with missing or unparseable dates first, numbers with
// non-numeric values treated as 0, booleans false before true.
func Compare(a, b any, kind ValueKind) int {
	return compareValues(a, b, kind)
}

func compareValues(a, b any, kind ValueKind) int {
	switch kind {
	case Date:
		ta, okA := toTime(a)
		tb, okB := toTime(b)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return -1
		case !okB:
			return 1
		}
		return ta.Compare(tb)
	case Number:
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case Bool:
		x, _ := toBool(a)
		y, _ := toBool(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	var sa, sb string
	if a != nil {
		sa = strings.ToLower(toString(a))
	}
	if b != nil {
		sb = strings.ToLower(toString(b))
	}
	return strings.Compare(sa, sb)
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case *float64:
		if x == nil {
			return 0, false
		}
		return *x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x, true
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case string:
		return parseDate(x)
	}
	return time.Time{}, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts RFC 3339 timestamps and plain dates. Values without a
// zone are read as UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
