package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	tablePadding = 2
	// maxCellWidth keeps long message bodies from stretching a column.
	maxCellWidth = 60
)

// writeTable prints rows aligned under headers. Cells are measured in
// terminal cells, so Turkish letters and wide glyphs line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	cells := make([][]string, 0, len(rows)+1)
	if len(headers) > 0 {
		cells = append(cells, headers)
	}
	for _, row := range rows {
		clipped := make([]string, len(row))
		for i, cell := range row {
			clipped[i] = fitCell(cell)
		}
		cells = append(cells, clipped)
	}

	widths := make([]int, colCount)
	for _, row := range cells {
		for idx, cell := range row {
			if w := runewidth.StringWidth(stripANSI(cell)); w > widths[idx] {
				widths[idx] = w
			}
		}
	}

	w := bufio.NewWriter(out)
	for _, row := range cells {
		var line strings.Builder
		for idx := 0; idx < colCount; idx++ {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			line.WriteString(cell)
			if idx < colCount-1 {
				padding := widths[idx] - runewidth.StringWidth(stripANSI(cell))
				if padding < 0 {
					padding = 0
				}
				line.WriteString(strings.Repeat(" ", padding+tablePadding))
			}
		}
		line.WriteString("\n")
		if _, err := w.WriteString(line.String()); err != nil {
			return err
		}
	}
	return w.Flush()
}

func fitCell(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	return runewidth.Truncate(value, maxCellWidth, "…")
}

func stripANSI(value string) string {
	if !strings.ContainsRune(value, 0x1b) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		i += 2
		for i < len(value) {
			ch := value[i]
			if ch >= 0x40 && ch <= 0x7e {
				break
			}
			i++
		}
	}
	return b.String()
}
