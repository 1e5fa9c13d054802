package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/alfredjeanlab/fleet/internal/query"
)

// DateLayout is how date cells are written.
const DateLayout = "2006-01-02"

// maxSheetName is the Excel limit on worksheet names.
const maxSheetName = 31

// Write renders records as a table: one header row of column labels, then one
// row per record. Missing fields are empty cells.
func Write(w io.Writer, format Format, sheet string, cols []Column, records []query.Record) error {
	switch format {
	case CSV:
		return writeCSV(w, cols, records)
	case XLSX:
		return writeXLSX(w, sheet, cols, records)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func writeCSV(w io.Writer, cols []Column, records []query.Record) error {
	cw := csv.NewWriter(w)
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = c.Label
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		for i, c := range cols {
			row[i] = text(r.Get(c.Field))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", r.String("id"), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, sheet string, cols []Column, records []query.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sheetName(sheet)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for n, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = value(r.Get(c.Field))
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %s: %w", r.String("id"), err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

// value keeps numbers and booleans typed for spreadsheet cells.
func value(v any) any {
	switch x := v.(type) {
	case float64, bool:
		return x
	}
	return text(v)
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(DateLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func sheetName(s string) string {
	if s == "" {
		return "Export"
	}
	r := []rune(s)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
