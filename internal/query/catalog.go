// Package query implements the listing engine shared by every fleet listing:
// a static field catalog, a filter compiler that splits request filters into
// store-native predicates and residual ones, an in-memory residual filter/sort
// stage, a statistics aggregator and a paginator.
package query

import (
	"fmt"
	"strings"
)

// FieldKind says whether the store can filter and sort a field directly.
type FieldKind int

const (
	// Native fields map to a store column, possibly through relation hops.
	Native FieldKind = iota
	// Virtual fields only exist after a row is projected in memory.
	Virtual
)

func (k FieldKind) String() string {
	if k == Virtual {
		return "virtual"
	}
	return "native"
}

// ValueKind selects comparison semantics for a field.
type ValueKind int

const (
	String ValueKind = iota
	Date
	Number
	Bool
)

// Path is an ordered list of relation hops ending in a column,
// e.g. {"account", "account_number"}.
type Path []string

// Column returns the final element of the path.
func (p Path) Column() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Relations returns the relation hops leading to the column.
func (p Path) Relations() []string {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Field describes one sortable/filterable key of a listing.
type Field struct {
	Key   string
	Kind  FieldKind
	Path  Path      // native only
	Value ValueKind
	// Include lists the relations a virtual field needs hydrated before it
	// can be projected.
	Include []string
}

// NativeField declares a field the store resolves through path.
func NativeField(key string, value ValueKind, path ...string) Field {
	return Field{Key: key, Kind: Native, Path: Path(path), Value: value}
}

// VirtualField declares a field computed by the projector.
func VirtualField(key string, value ValueKind, include ...string) Field {
	return Field{Key: key, Kind: Virtual, Value: value, Include: include}
}

// Match is the comparison a filter parameter compiles to.
type Match int

const (
	// MatchContains is a case-insensitive substring match.
	MatchContains Match = iota
	// MatchEqual is exact equality, for enum-like fields and keys.
	MatchEqual
	// MatchIn matches any of the supplied values.
	MatchIn
	// MatchDay matches the whole UTC day of the supplied date.
	MatchDay
	// MatchDateRange reads a from/to parameter pair (Key and ToKey).
	MatchDateRange
	// MatchTolerance matches numbers within ±Tolerance of the supplied value.
	MatchTolerance
)

// FilterSpec binds a request parameter to one or more fields.
// Several fields form an OR search across them.
type FilterSpec struct {
	Key    string
	ToKey  string
	Match  Match
	Fields []string
}

// Schema validates native paths against the backing store.
type Schema interface {
	ValidatePath(entity string, path Path) error
}

// Catalog is the static field table of one listing. It is built once and is
// read-only afterwards.
type Catalog struct {
	Entity      string
	IDKey       string
	DefaultSort SortKey

	fields  map[string]Field
	order   []string
	filters []FilterSpec
}

// NewCatalog builds a catalog. idKey must name a native field; it is the
// default sort key and the final tiebreaker of every native ordering.
func NewCatalog(entity, idKey string, fields []Field, filters []FilterSpec) (*Catalog, error) {
	c := &Catalog{
		Entity:      entity,
		IDKey:       idKey,
		DefaultSort: SortKey{Key: idKey},
		fields:      make(map[string]Field, len(fields)),
		filters:     filters,
	}
	for _, f := range fields {
		if _, dup := c.fields[f.Key]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate field %q", entity, f.Key)
		}
		if f.Kind == Native && len(f.Path) == 0 {
			return nil, fmt.Errorf("catalog %s: native field %q has no path", entity, f.Key)
		}
		c.fields[f.Key] = f
		c.order = append(c.order, f.Key)
	}
	id, ok := c.fields[idKey]
	if !ok || id.Kind != Native {
		return nil, fmt.Errorf("catalog %s: id field %q must be native", entity, idKey)
	}
	for _, spec := range filters {
		if len(spec.Fields) == 0 {
			return nil, fmt.Errorf("catalog %s: filter %q has no fields", entity, spec.Key)
		}
		for _, key := range spec.Fields {
			if _, ok := c.fields[key]; !ok {
				return nil, fmt.Errorf("catalog %s: filter %q references unknown field %q", entity, spec.Key, key)
			}
		}
		if spec.Match == MatchDateRange && spec.ToKey == "" {
			return nil, fmt.Errorf("catalog %s: date range filter %q has no upper-bound key", entity, spec.Key)
		}
	}
	return c, nil
}

// MustCatalog is NewCatalog for package-level tables.
func MustCatalog(entity, idKey string, fields []Field, filters []FilterSpec) *Catalog {
	c, err := NewCatalog(entity, idKey, fields, filters)
	if err != nil {
		panic(err)
	}
	return c
}

// Resolve looks up a field by key.
func (c *Catalog) Resolve(key string) (Field, bool) {
	f, ok := c.fields[key]
	return f, ok
}

// Keys returns every field key in declaration order.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.order...)
}

// Filters returns the filter specs in declaration order.
func (c *Catalog) Filters() []FilterSpec {
	return c.filters
}

// Validate checks every native path against the store schema.
func (c *Catalog) Validate(schema Schema) error {
	for _, key := range c.order {
		f := c.fields[key]
		if f.Kind != Native {
			continue
		}
		if err := schema.ValidatePath(c.Entity, f.Path); err != nil {
			return fmt.Errorf("catalog %s: field %q: %w", c.Entity, key, err)
		}
	}
	return nil
}

// Includes returns the relations the projector needs to resolve the virtual
// fields among keys. A nil keys slice means every field.
func (c *Catalog) Includes(keys []string) []string {
	if keys == nil {
		keys = c.order
	}
	seen := make(map[string]bool)
	var out []string
	for _, key := range keys {
		f, ok := c.fields[key]
		if !ok || f.Kind != Virtual {
			continue
		}
		for _, inc := range f.Include {
			if !seen[inc] {
				seen[inc] = true
				out = append(out, inc)
			}
		}
	}
	return out
}
