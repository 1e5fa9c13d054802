package ui

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// Table writes rows under an upper-cased header, aligned in columns two
// spaces apart. style, when set, colors a cell after its width is measured.
func Table(w io.Writer, headers []string, rows [][]string, style func(col int, cell string) string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	bw := bufio.NewWriter(w)
	header := make([]string, len(headers))
	for i, h := range headers {
		header[i] = strings.ToUpper(h)
	}
	writeRow(bw, widths, header, func(_ int, s string) string { return RenderMuted(s) })
	for _, row := range rows {
		writeRow(bw, widths, row, style)
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, widths []int, cells []string, style func(int, string) string) {
	for i := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		pad := widths[i] - utf8.RuneCountInString(cell)
		if style != nil {
			cell = style(i, cell)
		}
		w.WriteString(cell)
		if i < len(widths)-1 {
			w.WriteString(strings.Repeat(" ", pad+2))
		}
	}
	w.WriteByte('\n')
}
