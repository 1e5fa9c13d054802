package query

import (
	"strings"
	"time"
)

// Getter returns the value of a record key, nil when absent.
type Getter func(key string) any

// Predicate is a node of a filter tree. Stores translate trees into their own
// query language; Match evaluates a tree in memory.
type Predicate interface {
	Match(get Getter) bool
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when any child matches. An empty Or matches nothing.
type Or []Predicate

// Not negates its child.
type Not struct{ P Predicate }

// Exists matches rows having at least one related row in Relation that
// satisfies Where. Only stores can evaluate it.
type Exists struct {
	Relation string
	Where    Predicate
}

// Op is the comparison of a Cond.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpContains
	OpRange
	OpBefore
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpIn:
		return "in"
	case OpContains:
		return "contains"
	case OpRange:
		return "range"
	case OpBefore:
		return "before"
	}
	return "unknown"
}

// Cond is a leaf comparison against one field. Key names the field in a
// projected record; Path names it in the store.
type Cond struct {
	Key    string
	Path   Path
	Op     Op
	Kind   ValueKind
	Value  any
	Values []any
	// Lo and Hi bound OpRange inclusively; a nil bound is open.
	Lo, Hi any
}

// Eq matches column == v.
func Eq(column string, v any) Cond {
	return Cond{Key: column, Path: Path{column}, Op: OpEq, Kind: kindOf(v), Value: v}
}

// In matches column == any of vs.
func In(column string, vs ...any) Cond {
	var kind ValueKind
	if len(vs) > 0 {
		kind = kindOf(vs[0])
	}
	return Cond{Key: column, Path: Path{column}, Op: OpIn, Kind: kind, Values: vs}
}

// Contains matches a case-insensitive substring.
func Contains(column, s string) Cond {
	return Cond{Key: column, Path: Path{column}, Op: OpContains, Kind: String, Value: s}
}

// Between matches lo <= column <= hi; either bound may be nil.
func Between(column string, lo, hi any) Cond {
	kind := kindOf(lo)
	if lo == nil {
		kind = kindOf(hi)
	}
	return Cond{Key: column, Path: Path{column}, Op: OpRange, Kind: kind, Lo: lo, Hi: hi}
}

// Before matches column < t.
func Before(column string, t time.Time) Cond {
	return Cond{Key: column, Path: Path{column}, Op: OpBefore, Kind: Date, Value: t}
}

// StringsToAny converts a string slice for In.
func StringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (a And) Match(get Getter) bool {
	for _, p := range a {
		if !p.Match(get) {
			return false
		}
	}
	return true
}

func (o Or) Match(get Getter) bool {
	for _, p := range o {
		if p.Match(get) {
			return true
		}
	}
	return false
}

func (n Not) Match(get Getter) bool {
	return !n.P.Match(get)
}

// Match always reports false; related rows are not visible in memory.
func (Exists) Match(Getter) bool {
	return false
}

func (c Cond) Match(get Getter) bool {
	v := get(c.Key)
	switch c.Op {
	case OpEq:
		return equalValues(v, c.Value, c.Kind)
	case OpIn:
		for _, want := range c.Values {
			if equalValues(v, want, c.Kind) {
				return true
			}
		}
		return false
	case OpContains:
		if v == nil {
			return false
		}
		needle, _ := c.Value.(string)
		return strings.Contains(strings.ToLower(toString(v)), strings.ToLower(needle))
	case OpRange:
		if v == nil {
			return false
		}
		if c.Lo != nil && compareValues(v, c.Lo, c.Kind) < 0 {
			return false
		}
		if c.Hi != nil && compareValues(v, c.Hi, c.Kind) > 0 {
			return false
		}
		return true
	case OpBefore:
		if v == nil {
			return false
		}
		return compareValues(v, c.Value, c.Kind) < 0
	}
	return false
}

// AndOf combines predicates, dropping nils and flattening to a single node
// when possible. It returns nil when nothing remains.
func AndOf(ps ...Predicate) Predicate {
	var out And
	for _, p := range ps {
		switch v := p.(type) {
		case nil:
		case And:
			out = append(out, v...)
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func kindOf(v any) ValueKind {
	switch v.(type) {
	case time.Time, *time.Time:
		return Date
	case int, int32, int64, float32, float64:
		return Number
	case bool:
		return Bool
	}
	return String
}

func equalValues(a, b any, kind ValueKind) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch kind {
	case Number:
		x, ok1 := toFloat(a)
		y, ok2 := toFloat(b)
		return ok1 && ok2 && x == y
	case Date:
		x, ok1 := toTime(a)
		y, ok2 := toTime(b)
		return ok1 && ok2 && x.Equal(y)
	case Bool:
		x, ok1 := toBool(a)
		y, ok2 := toBool(b)
		return ok1 && ok2 && x == y
	}
	return toString(a) == toString(b)
}
