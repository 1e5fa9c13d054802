package query

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Tolerance is the half-width of the band MatchTolerance filters match,
// absorbing GPS sensor imprecision.
const Tolerance = 0.1

// Filters holds raw request filter parameters. Values are kept as sent;
// MatchIn additionally splits comma-separated values.
type Filters map[string][]string

// Get returns the first non-blank value of key.
func (f Filters) Get(key string) string {
	for _, v := range f[key] {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Values returns every non-blank value of key, splitting comma lists.
func (f Filters) Values(key string) []string {
	var out []string
	for _, v := range f[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Set replaces the values of key.
func (f Filters) Set(key string, values ...string) {
	f[key] = values
}

// Add appends values to key.
func (f Filters) Add(key string, values ...string) {
	f[key] = append(f[key], values...)
}

// Has reports whether key carries a non-blank value.
func (f Filters) Has(key string) bool {
	return len(f.Values(key)) > 0
}

// Compiled is a filter request split by where it can be evaluated.
type Compiled struct {
	// Native is handed to the store; nil means no restriction.
	Native Predicate
	// Residual predicates reference virtual fields and run after projection.
	Residual []Predicate
}

// ResidualKeys returns the catalog keys the residual predicates read.
func (c Compiled) ResidualKeys() []string {
	var keys []string
	for _, p := range c.Residual {
		keys = collectKeys(p, keys)
	}
	return keys
}

func collectKeys(p Predicate, keys []string) []string {
	switch v := p.(type) {
	case Cond:
		return append(keys, v.Key)
	case And:
		for _, c := range v {
			keys = collectKeys(c, keys)
		}
	case Or:
		for _, c := range v {
			keys = collectKeys(c, keys)
		}
	case Not:
		return collectKeys(v.P, keys)
	}
	return keys
}

// Compile translates request filters into predicates. Parameters without a
// filter spec, blank values and values that do not parse contribute nothing.
// Filters combine with AND; a spec over several fields is an OR across them.
func Compile(c *Catalog, f Filters) Compiled {
	var (
		native []Predicate
		out    Compiled
	)
	for _, spec := range c.filters {
		p := compileSpec(c, spec, f)
		if p == nil {
			continue
		}
		if c.touchesVirtual(spec) {
			out.Residual = append(out.Residual, p)
		} else {
			native = append(native, p)
		}
	}
	out.Native = AndOf(native...)
	return out
}

func (c *Catalog) touchesVirtual(spec FilterSpec) bool {
	for _, key := range spec.Fields {
		if c.fields[key].Kind == Virtual {
			return true
		}
	}
	return false
}

func compileSpec(c *Catalog, spec FilterSpec, f Filters) Predicate {
	var conds []Predicate
	for _, key := range spec.Fields {
		field := c.fields[key]
		if cond, ok := compileField(field, spec, f); ok {
			conds = append(conds, cond)
		}
	}
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	}
	return Or(conds)
}

func compileField(field Field, spec FilterSpec, f Filters) (Cond, bool) {
	cond := Cond{Key: field.Key, Path: field.Path, Kind: field.Value}
	switch spec.Match {
	case MatchContains:
		v := f.Get(spec.Key)
		if v == "" {
			return cond, false
		}
		cond.Op, cond.Kind, cond.Value = OpContains, String, v
		return cond, true

	case MatchEqual:
		v := f.Get(spec.Key)
		if v == "" {
			return cond, false
		}
		if field.Value == Date {
			return dayRange(cond, v)
		}
		val, ok := parseAs(field.Value, v)
		if !ok {
			return cond, false
		}
		cond.Op, cond.Value = OpEq, val
		return cond, true

	case MatchIn:
		for _, raw := range f.Values(spec.Key) {
			if val, ok := parseAs(field.Value, raw); ok {
				cond.Values = append(cond.Values, val)
			}
		}
		if len(cond.Values) == 0 {
			return cond, false
		}
		cond.Op = OpIn
		return cond, true

	case MatchDay:
		return dayRange(cond, f.Get(spec.Key))

	case MatchDateRange:
		from, okFrom := parseDate(f.Get(spec.Key))
		to, okTo := parseDate(f.Get(spec.ToKey))
		if !okFrom && !okTo {
			return cond, false
		}
		cond.Op, cond.Kind = OpRange, Date
		if okFrom {
			cond.Lo = StartOfDay(from)
		}
		if okTo {
			cond.Hi = EndOfDay(to)
		}
		return cond, true

	case MatchTolerance:
		x, ok := toFloat(f.Get(spec.Key))
		if !ok {
			return cond, false
		}
		cond.Op, cond.Kind = OpRange, Number
		cond.Lo, cond.Hi = roundBound(x-Tolerance), roundBound(x+Tolerance)
		return cond, true
	}
	return cond, false
}

// roundBound snaps a band edge to nine decimals so 10.2+0.1 is 10.3 rather
// than 10.299999999999999.
func roundBound(x float64) float64 {
	return math.Round(x*1e9) / 1e9
}

func dayRange(cond Cond, raw string) (Cond, bool) {
	t, ok := parseDate(raw)
	if !ok {
		return cond, false
	}
	cond.Op, cond.Kind = OpRange, Date
	cond.Lo, cond.Hi = StartOfDay(t), EndOfDay(t)
	return cond, true
}

func parseAs(kind ValueKind, raw string) (any, bool) {
	switch kind {
	case Number:
		return toFloat(raw)
	case Bool:
		b, err := strconv.ParseBool(raw)
		return b, err == nil
	case Date:
		t, ok := parseDate(raw)
		return t, ok
	}
	return raw, true
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last microsecond of t's UTC day, the finest
// resolution Postgres timestamps keep. It covers 23:59:59.999Z and anything
// later on the same day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Microsecond)
}
