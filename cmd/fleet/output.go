package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// statusColumns are colored by value in tables.
var statusColumns = map[string]bool{
	"status":     true,
	"due_status": true,
	"priority":   true,
}

func printPage(w io.Writer, page *query.Page, columns []string) error {
	rows := make([][]string, len(page.Data))
	for i, rec := range page.Data {
		rows[i] = make([]string, len(columns))
		for j, col := range columns {
			rows[i][j] = formatCell(rec.Get(col))
		}
	}
	err := ui.Table(w, columns, rows, func(col int, cell string) string {
		if statusColumns[columns[col]] {
			return ui.RenderStatus(cell)
		}
		return cell
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("page %d of %d, %d total", page.Page, page.TotalPages, page.Total)))
	if len(page.Stats) > 0 {
		parts := make([]string, len(page.Stats))
		for i, s := range page.Stats {
			parts[i] = fmt.Sprintf("%s=%d", s.Name, s.Count)
		}
		fmt.Fprintln(w, ui.RenderMuted("stats: "+strings.Join(parts, " ")))
	}
	return nil
}

func printRecord(w io.Writer, rec query.Record, columns []string) {
	width := 0
	for _, c := range columns {
		width = max(width, len(c)+1)
	}
	for _, c := range columns {
		fmt.Fprintf(w, "%-*s  %s\n", width, c+":", formatCell(rec.Get(c)))
	}
}

// formatCell renders a decoded JSON value for a table cell. Timestamps at
// midnight UTC print as dates.
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSuffix(v, "T00:00:00Z")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
