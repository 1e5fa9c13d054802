package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/fleet/internal/query"
)

// sqlBuilder compiles predicate trees and orderings over one base table into
// SQL with $n placeholders. Relation hops become LEFT JOINs aliased by the
// hops joined with "__"; each distinct hop chain is joined once.
type sqlBuilder struct {
	table string
	alias string
	args  *[]any
	joins []string
	// joined holds the aliases already present in joins.
	joined map[string]bool
	depth  int
}

func newBuilder(table string) *sqlBuilder {
	return &sqlBuilder{table: table, alias: table, args: new([]any), joined: make(map[string]bool)}
}

func (b *sqlBuilder) nextArg(v any) string {
	*b.args = append(*b.args, v)
	return fmt.Sprintf("$%d", len(*b.args))
}

// Args returns the placeholder values in order.
func (b *sqlBuilder) Args() []any {
	return *b.args
}

// From returns the FROM clause with every join required so far.
func (b *sqlBuilder) From() string {
	from := b.table
	if b.alias != b.table {
		from += " " + b.alias
	}
	if len(b.joins) == 0 {
		return from
	}
	return from + "\n" + strings.Join(b.joins, "\n")
}

// join ensures the hop chain is joined and returns its alias.
func (b *sqlBuilder) join(hops []string) (string, error) {
	alias, table := b.alias, b.table
	for i, hop := range hops {
		rel, ok := schema[table].relations[hop]
		if !ok {
			return "", fmt.Errorf("%s has no relation %q", table, hop)
		}
		if rel.many {
			return "", fmt.Errorf("relation %s.%s is to-many", table, hop)
		}
		next := strings.Join(hops[:i+1], "__")
		if b.depth > 0 {
			next = b.alias + "__" + next
		}
		if !b.joined[next] {
			b.joined[next] = true
			b.joins = append(b.joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = %s.%s",
				rel.table, next, next, rel.remote, alias, rel.local))
		}
		alias, table = next, rel.table
	}
	return alias, nil
}

// column returns the qualified column for path, joining as needed.
func (b *sqlBuilder) column(path query.Path) (string, columnType, error) {
	typ, err := resolvePath(b.table, path)
	if err != nil {
		return "", 0, err
	}
	alias, err := b.join(path.Relations())
	if err != nil {
		return "", 0, err
	}
	return alias + "." + path.Column(), typ, nil
}

// Where compiles p. A nil predicate yields "".
func (b *sqlBuilder) Where(p query.Predicate) (string, error) {
	if p == nil {
		return "", nil
	}
	return b.predicate(p)
}

func (b *sqlBuilder) predicate(p query.Predicate) (string, error) {
	switch v := p.(type) {
	case query.And:
		return b.group(v, " AND ", "TRUE")
	case query.Or:
		return b.group(v, " OR ", "FALSE")
	case query.Not:
		inner, err := b.predicate(v.P)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case query.Exists:
		return b.exists(v)
	case query.Cond:
		return b.cond(v)
	}
	return "", fmt.Errorf("unsupported predicate %T", p)
}

func (b *sqlBuilder) group(ps []query.Predicate, sep, empty string) (string, error) {
	if len(ps) == 0 {
		return empty, nil
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		s, err := b.predicate(p)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (b *sqlBuilder) exists(e query.Exists) (string, error) {
	rel, ok := schema[b.table].relations[e.Relation]
	if !ok {
		return "", fmt.Errorf("%s has no relation %q", b.table, e.Relation)
	}
	sub := &sqlBuilder{
		table:  rel.table,
		alias:  fmt.Sprintf("x%d", b.depth+1),
		args:   b.args,
		joined: make(map[string]bool),
		depth:  b.depth + 1,
	}
	where := fmt.Sprintf("%s.%s = %s.%s", sub.alias, rel.remote, b.alias, rel.local)
	if e.Where != nil {
		inner, err := sub.predicate(e.Where)
		if err != nil {
			return "", err
		}
		where += " AND " + inner
	}
	return "EXISTS (SELECT 1 FROM " + sub.From() + " WHERE " + where + ")", nil
}

func (b *sqlBuilder) cond(c query.Cond) (string, error) {
	col, typ, err := b.column(c.Path)
	if err != nil {
		return "", err
	}
	switch c.Op {
	case query.OpEq:
		if c.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + b.nextArg(sqlValue(c.Value)), nil
	case query.OpIn:
		if len(c.Values) == 0 {
			return "FALSE", nil
		}
		return col + " = ANY(" + b.nextArg(arrayArg(typ, c.Values)) + ")", nil
	case query.OpContains:
		needle, _ := c.Value.(string)
		return fmt.Sprintf("%s::text ILIKE '%%' || %s || '%%'", col, b.nextArg(likeEscaper.Replace(needle))), nil
	case query.OpRange:
		var parts []string
		if c.Lo != nil {
			parts = append(parts, col+" >= "+b.nextArg(sqlValue(c.Lo)))
		}
		if c.Hi != nil {
			parts = append(parts, col+" <= "+b.nextArg(sqlValue(c.Hi)))
		}
		if len(parts) == 0 {
			return col + " IS NOT NULL", nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case query.OpBefore:
		return col + " < " + b.nextArg(sqlValue(c.Value)), nil
	}
	return "", fmt.Errorf("unsupported op %s", c.Op)
}

// OrderBy compiles orders. Text columns order case-insensitively and NULLs
// sort as the smallest value, as the in-memory comparator does.
func (b *sqlBuilder) OrderBy(orders []query.Order) (string, error) {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		col, typ, err := b.column(o.Path)
		if err != nil {
			return "", err
		}
		dir := " ASC"
		nulls := " NULLS FIRST"
		if o.Desc {
			dir, nulls = " DESC", " NULLS LAST"
		}
		if typ == colText {
			// Case variants tie under LOWER; the raw column keeps them apart.
			parts = append(parts, "LOWER("+col+")"+dir+nulls, col+dir)
			continue
		}
		parts = append(parts, col+dir+nulls)
	}
	return strings.Join(parts, ", "), nil
}

// likeEscaper makes LIKE wildcards in a needle match literally, using the
// default backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func sqlValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

func arrayArg(typ columnType, values []any) any {
	switch typ {
	case colNumeric:
		out := make(pq.Float64Array, 0, len(values))
		for _, v := range values {
			if f, ok := v.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	case colBool:
		out := make(pq.BoolArray, 0, len(values))
		for _, v := range values {
			if x, ok := v.(bool); ok {
				out = append(out, x)
			}
		}
		return out
	}
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case time.Time:
			out = append(out, x.UTC().Format(time.RFC3339Nano))
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	return out
}
