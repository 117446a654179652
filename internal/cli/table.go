package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	tablePadding  = 2
	maxTitleWidth = 60
)

// writeTable aligns columns by display width, so Hangul titles line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for idx, header := range headers {
		widths[idx] = max(widths[idx], runewidth.StringWidth(header))
	}
	for _, row := range rows {
		for idx, cell := range row {
			widths[idx] = max(widths[idx], runewidth.StringWidth(cell))
		}
	}

	w := bufio.NewWriter(out)
	writeRow := func(row []string) {
		for idx := 0; idx < colCount; idx++ {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			_, _ = w.WriteString(cell)
			if idx < colCount-1 {
				pad := widths[idx] - runewidth.StringWidth(cell)
				_, _ = w.WriteString(strings.Repeat(" ", max(pad, 0)+tablePadding))
			}
		}
		_, _ = w.WriteString("\n")
	}
	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, row := range rows {
		writeRow(row)
	}
	return w.Flush()
}

func truncateTitle(s string) string {
	return runewidth.Truncate(s, maxTitleWidth, "…")
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
