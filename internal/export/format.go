// Package export renders listing results as spreadsheets and uploads them.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/alfredjeanlab/fleet/internal/query"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat reads a format name, case-insensitively. Empty means XLSX.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", XLSX:
		return XLSX, nil
	case CSV:
		return CSV, nil
	}
	return "", query.InputError(fmt.Sprintf("unsupported export format %q", s))
}

func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Ext is the file extension without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Column is one exported column: a header label and the record key it reads.
// A field the record lacks renders as an empty cell.
type Column struct {
	Label string `json:"label"`
	Field string `json:"field"`
}

// UnmarshalJSON accepts {"label", "field"} or a bare field key.
func (c *Column) UnmarshalJSON(data []byte) error {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		*c = Column{Field: field}
		return nil
	}
	type plain Column
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("export column: %w", err)
	}
	*c = Column(p)
	return nil
}

// Columns fills in missing labels. No columns selects every catalog key in
// declaration order.
func Columns(c *query.Catalog, cols []Column) ([]Column, error) {
	if len(cols) == 0 {
		for _, key := range c.Keys() {
			cols = append(cols, Column{Field: key})
		}
	}
	out := make([]Column, 0, len(cols))
	for _, col := range cols {
		col.Field = strings.TrimSpace(col.Field)
		if col.Field == "" {
			return nil, query.InputError("export column field is required")
		}
		if col.Label == "" {
			col.Label = Label(col.Field)
		}
		out = append(out, col)
	}
	return out, nil
}

// Label turns a record key into a header, e.g. "unit_number" -> "Unit Number".
// The id suffix is capitalized: "account_id" -> "Account ID".
func Label(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		switch w {
		case "":
			continue
		case "id", "vin", "url":
			words[i] = strings.ToUpper(w)
		default:
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			words[i] = string(r)
		}
	}
	return strings.Join(words, " ")
}

// Fields returns the keys of cols that c can project, which decide the
// relations the fetch loads.
func Fields(c *query.Catalog, cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		if _, ok := c.Resolve(col.Field); ok {
			out = append(out, col.Field)
		}
	}
	return out
}
